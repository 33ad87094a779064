package services

import "github.com/assigndesk/task-assignment-api/internal/models"

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	ID   uint64
	Role models.UserRole
}

// CanTransition is the single authorization rule consulted by every
// status-changing path.
//
// Admins may move any task between any two states. A non-admin may act
// only on a task assigned to them, and only along the worker side of the
// workflow: pending → in-progress ("start") and in-progress →
// review-requested ("request review"). Review resolution (completed,
// rejected) is admin-only, as is reopening a finished task.
func CanTransition(actor Actor, task *models.Task, from, to models.TaskStatus) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if task.AssignedToID != actor.ID {
		return false
	}

	switch {
	case from == models.StatusPending && to == models.StatusInProgress:
		return true
	case from == models.StatusInProgress && to == models.StatusReviewRequested:
		return true
	}
	return false
}
