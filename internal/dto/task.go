package dto

import (
	"time"

	"github.com/assigndesk/task-assignment-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID    uint64          `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"usertype"`
}

// DocumentDTO represents a task attachment in API responses. Index is the
// position clients use to download the file.
type DocumentDTO struct {
	Index        int    `json:"index"`
	FileName     string `json:"filename"`
	OriginalName string `json:"originalname"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimetype"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID              uint64              `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Deadline        time.Time           `json:"deadline"`
	Priority        models.TaskPriority `json:"priority"`
	Status          models.TaskStatus   `json:"status"`
	RejectionReason string              `json:"rejectionReason,omitempty"`
	AssignedByID    uint64              `json:"assignedBy"`
	AssignedToID    uint64              `json:"assignedTo"`
	Version         uint64              `json:"version"`
	LastUpdatedByID uint64              `json:"lastUpdatedBy"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	AssignedByUser  *UserDTO            `json:"assignedByUser,omitempty"`
	AssignedToUser  *UserDTO            `json:"assignedToUser,omitempty"`
	Documents       []DocumentDTO       `json:"documents"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:              task.ID,
		Title:           task.Title,
		Description:     task.Description,
		Deadline:        task.Deadline,
		Priority:        task.Priority,
		Status:          task.Status,
		RejectionReason: task.RejectionReason,
		AssignedByID:    task.AssignedByID,
		AssignedToID:    task.AssignedToID,
		Version:         task.Version,
		LastUpdatedByID: task.LastUpdatedByID,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
		Documents:       make([]DocumentDTO, len(task.Documents)),
	}

	// Include users if preloaded
	if task.AssignedBy.ID != 0 {
		u := ToUserDTO(task.AssignedBy)
		dto.AssignedByUser = &u
	}
	if task.AssignedTo.ID != 0 {
		u := ToUserDTO(task.AssignedTo)
		dto.AssignedToUser = &u
	}

	for i, doc := range task.Documents {
		dto.Documents[i] = DocumentDTO{
			Index:        i,
			FileName:     doc.FileName,
			OriginalName: doc.OriginalName,
			Size:         doc.Size,
			MimeType:     doc.MimeType,
		}
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}
