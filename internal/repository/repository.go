package repository

import (
	"errors"

	"github.com/assigndesk/task-assignment-api/internal/models"
	"github.com/assigndesk/task-assignment-api/internal/utils"
)

// ErrVersionConflict is returned when a versioned write matched no row,
// meaning a concurrent update won the race.
var ErrVersionConflict = errors.New("task was modified by a concurrent update")

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	AssignedToID *uint64
	AssignedByID *uint64
	Status       *models.TaskStatus
	Pagination   *utils.PaginationParams
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create persists a task together with its ordered documents
	Create(task *models.Task, docs []models.Document) error

	// FindByID finds a task with its users and ordered documents
	FindByID(id uint64) (*models.Task, error)

	// List retrieves tasks matching the filter, newest first
	List(filter TaskFilter) ([]models.Task, int64, error)

	// UpdateVersioned writes the task only if the stored version still
	// equals expectedVersion; returns ErrVersionConflict otherwise
	UpdateVersioned(task *models.Task, expectedVersion uint64) error

	// Delete removes a task and its document records
	Delete(id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// ListByRole lists all users with the given role
	ListByRole(role models.UserRole) ([]models.User, error)
}
