package storage

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFile struct {
	name        string
	contentType string
	content     []byte
}

func pdfFile(name string, size int) testFile {
	return testFile{name: name, contentType: PDFMimeType, content: bytes.Repeat([]byte("a"), size)}
}

// buildFileHeaders assembles real multipart.FileHeader values the way an
// HTTP request would deliver them.
func buildFileHeaders(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadField, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() {
		form.RemoveAll()
	})

	return form.File[UploadField]
}

func storedFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestStore_SaveAll(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	docs, err := store.SaveAll(buildFileHeaders(t,
		pdfFile("report.pdf", 128),
		pdfFile("figures.pdf", 256),
	))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Submission order is preserved and records are complete.
	assert.Equal(t, 0, docs[0].Position)
	assert.Equal(t, 1, docs[1].Position)
	assert.Equal(t, "report.pdf", docs[0].OriginalName)
	assert.Equal(t, "figures.pdf", docs[1].OriginalName)
	assert.Equal(t, int64(128), docs[0].Size)
	assert.Equal(t, PDFMimeType, docs[0].MimeType)

	for _, doc := range docs {
		_, err := os.Stat(doc.StoragePath)
		assert.NoError(t, err)
	}
	assert.Equal(t, 2, storedFileCount(t, dir))
}

func TestStore_SaveAll_TooManyFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.SaveAll(buildFileHeaders(t,
		pdfFile("a.pdf", 10),
		pdfFile("b.pdf", 10),
		pdfFile("c.pdf", 10),
		pdfFile("d.pdf", 10),
	))
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.Zero(t, storedFileCount(t, dir))
}

func TestStore_SaveAll_RejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	// The batch fails on the second file; the first, already written, must
	// be cleaned up again.
	_, err = store.SaveAll(buildFileHeaders(t,
		pdfFile("ok.pdf", 10),
		testFile{name: "notes.txt", contentType: "text/plain", content: []byte("hello")},
	))
	assert.ErrorIs(t, err, ErrInvalidFileType)
	assert.Zero(t, storedFileCount(t, dir))
}

func TestStore_SaveAll_RejectsOversizeFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.SaveAll(buildFileHeaders(t,
		pdfFile("ok.pdf", 10),
		pdfFile("big.pdf", MaxFileSize+1),
	))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Zero(t, storedFileCount(t, dir))
}

func TestStore_SaveAll_AtSizeLimit(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	docs, err := store.SaveAll(buildFileHeaders(t, pdfFile("limit.pdf", MaxFileSize)))
	require.NoError(t, err)
	assert.Equal(t, int64(MaxFileSize), docs[0].Size)
}

func TestStore_Remove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	docs, err := store.SaveAll(buildFileHeaders(t, pdfFile("report.pdf", 64)))
	require.NoError(t, err)

	store.Remove(docs)
	assert.Zero(t, storedFileCount(t, dir))

	// Removing already-removed documents must not blow up.
	store.Remove(docs)
}
