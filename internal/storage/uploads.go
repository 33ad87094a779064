package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/assigndesk/task-assignment-api/internal/logging"
	"github.com/assigndesk/task-assignment-api/internal/models"
)

// Upload constraints
const (
	UploadField     = "documents"
	MaxFilesPerTask = 3
	MaxFileSize     = 5 * 1024 * 1024 // 5 MB
	PDFMimeType     = "application/pdf"
)

var (
	ErrTooManyFiles    = fmt.Errorf("a task can carry at most %d documents", MaxFilesPerTask)
	ErrFileTooLarge    = fmt.Errorf("each document must be %s or smaller", humanize.IBytes(MaxFileSize))
	ErrInvalidFileType = errors.New("only PDF documents are allowed")
)

// Store writes task attachments to a local directory.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed and returns a Store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SaveAll validates and persists the uploaded files in submission order.
// If any file fails validation or writing, everything already written for
// this batch is removed and the error is returned.
func (s *Store) SaveAll(files []*multipart.FileHeader) ([]models.Document, error) {
	if len(files) > MaxFilesPerTask {
		return nil, ErrTooManyFiles
	}

	saved := make([]models.Document, 0, len(files))
	for i, fh := range files {
		if err := validate(fh); err != nil {
			s.Remove(saved)
			return nil, err
		}

		doc, err := s.save(fh, i)
		if err != nil {
			s.Remove(saved)
			return nil, err
		}
		saved = append(saved, *doc)
	}

	return saved, nil
}

// Remove deletes the stored files for the given documents. Best effort:
// failures are logged and swallowed so an error response is never blocked
// on cleanup.
func (s *Store) Remove(docs []models.Document) {
	for _, doc := range docs {
		if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
			logging.Logger.WithError(err).Warnf("failed to remove stored document %s", doc.FileName)
		}
	}
}

func validate(fh *multipart.FileHeader) error {
	if fh.Size > MaxFileSize {
		return ErrFileTooLarge
	}

	mediaType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil || mediaType != PDFMimeType {
		return ErrInvalidFileType
	}

	return nil
}

func (s *Store) save(fh *multipart.FileHeader, position int) (*models.Document, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + filepath.Ext(fh.Filename)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create stored file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write stored file: %w", err)
	}

	return &models.Document{
		Position:     position,
		FileName:     name,
		OriginalName: filepath.Base(fh.Filename),
		StoragePath:  path,
		Size:         fh.Size,
		MimeType:     PDFMimeType,
	}, nil
}
