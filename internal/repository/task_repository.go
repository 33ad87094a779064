package repository

import (
	"gorm.io/gorm"

	"github.com/assigndesk/task-assignment-api/internal/database"
	"github.com/assigndesk/task-assignment-api/internal/models"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create persists a task and its documents in one transaction
func (r *GormTaskRepository) Create(task *models.Task, docs []models.Document) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}

		for i := range docs {
			docs[i].TaskID = task.ID
		}
		if len(docs) > 0 {
			if err := tx.Create(&docs).Error; err != nil {
				return err
			}
		}

		task.Documents = docs
		return nil
	})
}

// FindByID finds a task with its users and ordered documents
func (r *GormTaskRepository) FindByID(id uint64) (*models.Task, error) {
	var task models.Task
	err := r.db.
		Preload("AssignedBy").
		Preload("AssignedTo").
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("documents.position ASC")
		}).
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks matching the filter, newest first
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	if filter.AssignedToID != nil {
		query = query.Where("tasks.assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.AssignedByID != nil {
		query = query.Where("tasks.assigned_by_id = ?", *filter.AssignedByID)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC")
	if filter.Pagination != nil {
		listQuery = listQuery.Scopes(database.Paginate(*filter.Pagination))
	}

	err := listQuery.
		Preload("AssignedBy").
		Preload("AssignedTo").
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("documents.position ASC")
		}).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// UpdateVersioned writes the task only if no concurrent update has bumped
// the version since it was read
func (r *GormTaskRepository) UpdateVersioned(task *models.Task, expectedVersion uint64) error {
	task.Version = expectedVersion + 1

	res := r.db.Model(&models.Task{}).
		Where("id = ? AND version = ?", task.ID, expectedVersion).
		Select(
			"title",
			"description",
			"deadline",
			"priority",
			"status",
			"rejection_reason",
			"assigned_to_id",
			"last_updated_by_id",
			"version",
			"updated_at",
		).
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Delete removes a task and its document records
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Document{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}
