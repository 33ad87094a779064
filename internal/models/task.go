package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	StatusPending         TaskStatus = "pending"
	StatusInProgress      TaskStatus = "in-progress"
	StatusReviewRequested TaskStatus = "review-requested"
	StatusCompleted       TaskStatus = "completed"
	StatusRejected        TaskStatus = "rejected"
)

// Valid reports whether the status is one of the workflow states.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusReviewRequested, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether the priority is one of the known levels.
func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Task struct {
	ID              uint64       `gorm:"primarykey" json:"id"`
	Title           string       `gorm:"not null" json:"title"`
	Description     string       `gorm:"type:text" json:"description"`
	Deadline        time.Time    `gorm:"not null;index" json:"deadline"`
	Priority        TaskPriority `gorm:"type:varchar(10);not null" json:"priority"`
	Status          TaskStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RejectionReason string       `gorm:"type:text" json:"rejectionReason,omitempty"`
	AssignedByID    uint64       `gorm:"not null;index" json:"assignedBy"`
	AssignedToID    uint64       `gorm:"not null;index" json:"assignedTo"`

	// Version guards against concurrent overwrites; every successful
	// mutation increments it.
	Version uint64 `gorm:"not null;default:1" json:"version"`

	LastUpdatedByID uint64         `gorm:"not null" json:"lastUpdatedBy"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	AssignedBy User       `gorm:"foreignKey:AssignedByID" json:"-"`
	AssignedTo User       `gorm:"foreignKey:AssignedToID" json:"-"`
	Documents  []Document `gorm:"foreignKey:TaskID" json:"documents,omitempty"`
}
