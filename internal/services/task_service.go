package services

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/assigndesk/task-assignment-api/internal/logging"
	"github.com/assigndesk/task-assignment-api/internal/models"
	"github.com/assigndesk/task-assignment-api/internal/repository"
	"github.com/assigndesk/task-assignment-api/internal/storage"
	"github.com/assigndesk/task-assignment-api/internal/utils"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrMissingFields        = errors.New("missing required fields")
	ErrInvalidDeadline      = errors.New("deadline is missing or not a valid timestamp")
	ErrInvalidPriority      = errors.New("priority must be low, medium or high")
	ErrInvalidStatus        = errors.New("unknown task status")
	ErrAssigneeNotFound     = errors.New("assigned user does not exist")
	ErrNotTaskAssignee      = errors.New("only the task assignee may update this task")
	ErrTransitionNotAllowed = errors.New("status transition not allowed for this actor")
	ErrTaskConflict         = errors.New("task was changed by someone else, reload and retry")
)

// deadlineFormats are tried in order when parsing client-supplied deadlines.
var deadlineFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDeadline converts a client-supplied deadline string to a timestamp.
func ParseDeadline(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDeadline
	}
	for _, layout := range deadlineFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDeadline
}

// TaskService enforces the task workflow: creation, the status state
// machine, reassignment, listing and deletion.
type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	store    *storage.Store
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, store *storage.Store) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		store:    store,
	}
}

// CreateTaskInput carries the multipart form fields of task creation.
type CreateTaskInput struct {
	Title       string
	Description string
	Deadline    string
	Priority    string
}

// Create validates the input, stores the attachments and persists the task
// with status pending. Field validation runs before any file is written;
// on a later failure every stored file is removed again.
func (s *TaskService) Create(input CreateTaskInput, adminID, assigneeID uint64, files []*multipart.FileHeader) (*models.Task, error) {
	if input.Title == "" || input.Description == "" || input.Deadline == "" || input.Priority == "" {
		return nil, ErrMissingFields
	}

	deadline, err := ParseDeadline(input.Deadline)
	if err != nil {
		return nil, err
	}

	priority := models.TaskPriority(input.Priority)
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if _, err := s.userRepo.FindByID(assigneeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("failed to verify assignee: %w", err)
	}

	docs, err := s.store.SaveAll(files)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:           input.Title,
		Description:     input.Description,
		Deadline:        deadline,
		Priority:        priority,
		Status:          models.StatusPending,
		AssignedByID:    adminID,
		AssignedToID:    assigneeID,
		LastUpdatedByID: adminID,
		Version:         1,
	}

	if err := s.taskRepo.Create(task, docs); err != nil {
		s.store.Remove(docs)
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	logging.Logger.WithField("task_id", task.ID).Info("task created")

	return s.taskRepo.FindByID(task.ID)
}

// UpdateStatusInput carries the body of a status update.
type UpdateStatusInput struct {
	Status          string
	RejectionReason string
}

// UpdateStatus applies the guarded state machine to a task. The named
// convenience operations (start, request review, approve, reject) all
// funnel through here.
func (s *TaskService) UpdateStatus(taskID uint64, input UpdateStatusInput, actor Actor) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	to := models.TaskStatus(input.Status)
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	if !CanTransition(actor, task, task.Status, to) {
		if actor.Role != models.RoleAdmin && task.AssignedToID != actor.ID {
			return nil, ErrNotTaskAssignee
		}
		return nil, ErrTransitionNotAllowed
	}

	expected := task.Version
	task.Status = to
	if to == models.StatusRejected {
		task.RejectionReason = input.RejectionReason
	} else {
		task.RejectionReason = ""
	}
	task.LastUpdatedByID = actor.ID

	if err := s.taskRepo.UpdateVersioned(task, expected); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrTaskConflict
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID)
}

// Start moves a pending task to in-progress on behalf of its assignee.
func (s *TaskService) Start(taskID uint64, actor Actor) (*models.Task, error) {
	return s.UpdateStatus(taskID, UpdateStatusInput{Status: string(models.StatusInProgress)}, actor)
}

// RequestReview moves an in-progress task to review-requested.
func (s *TaskService) RequestReview(taskID uint64, actor Actor) (*models.Task, error) {
	return s.UpdateStatus(taskID, UpdateStatusInput{Status: string(models.StatusReviewRequested)}, actor)
}

// Approve marks a task completed.
func (s *TaskService) Approve(taskID uint64, actor Actor) (*models.Task, error) {
	return s.UpdateStatus(taskID, UpdateStatusInput{Status: string(models.StatusCompleted)}, actor)
}

// Reject marks a task rejected and records the reason.
func (s *TaskService) Reject(taskID uint64, reason string, actor Actor) (*models.Task, error) {
	return s.UpdateStatus(taskID, UpdateStatusInput{
		Status:          string(models.StatusRejected),
		RejectionReason: reason,
	}, actor)
}

// ReassignInput is the admin-only full update. All fields are required.
type ReassignInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	AssignedTo  uint64 `json:"assignedTo"`
}

// Reassign rewrites every mutable field of a task, bypassing the guarded
// state machine. This is the corrective-edit path admins use to reopen
// completed or rejected tasks.
func (s *TaskService) Reassign(taskID uint64, input ReassignInput, actor Actor) (*models.Task, error) {
	if input.Title == "" || input.Description == "" || input.Deadline == "" ||
		input.Priority == "" || input.Status == "" || input.AssignedTo == 0 {
		return nil, ErrMissingFields
	}

	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	deadline, err := ParseDeadline(input.Deadline)
	if err != nil {
		return nil, err
	}

	priority := models.TaskPriority(input.Priority)
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	status := models.TaskStatus(input.Status)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	if _, err := s.userRepo.FindByID(input.AssignedTo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("failed to verify assignee: %w", err)
	}

	expected := task.Version
	task.Title = input.Title
	task.Description = input.Description
	task.Deadline = deadline
	task.Priority = priority
	task.Status = status
	task.AssignedToID = input.AssignedTo
	if status != models.StatusRejected {
		task.RejectionReason = ""
	}
	task.LastUpdatedByID = actor.ID

	if err := s.taskRepo.UpdateVersioned(task, expected); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrTaskConflict
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID)
}

// List returns all tasks, paginated.
func (s *TaskService) List(params utils.PaginationParams) ([]models.Task, int64, error) {
	return s.taskRepo.List(repository.TaskFilter{Pagination: &params})
}

// ListForUser returns all tasks assigned to a user.
func (s *TaskService) ListForUser(userID uint64) ([]models.Task, error) {
	tasks, _, err := s.taskRepo.List(repository.TaskFilter{AssignedToID: &userID})
	return tasks, err
}

// ListAssignedBy returns all tasks an admin has assigned.
func (s *TaskService) ListAssignedBy(adminID uint64) ([]models.Task, error) {
	tasks, _, err := s.taskRepo.List(repository.TaskFilter{AssignedByID: &adminID})
	return tasks, err
}

// Delete removes a task with its document records and stored files.
func (s *TaskService) Delete(taskID uint64) error {
	task, err := s.findTask(taskID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	// File removal is best effort; the rows are already gone.
	s.store.Remove(task.Documents)

	logging.Logger.WithField("task_id", taskID).Info("task deleted")
	return nil
}

// GetDocument returns a task attachment addressed by position.
func (s *TaskService) GetDocument(taskID uint64, index int) (*models.Document, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(task.Documents) {
		return nil, ErrDocumentNotFound
	}

	return &task.Documents[index], nil
}

func (s *TaskService) findTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}
