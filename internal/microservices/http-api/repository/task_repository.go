package repository

import (
	"context"
	"errors"

	"imis/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type TaskRepository interface {
	GetByID(ctx context.Context, taskID string) (*models.Task, error)
	UpdateStatus(ctx context.Context, taskID, status string) error
	UpdatePriority(ctx context.Context, taskID, priority string) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) GetByID(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "task_id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, taskID, status string) error {
	return r.update(ctx, taskID, "status", status)
}

func (r *taskRepository) UpdatePriority(ctx context.Context, taskID, priority string) error {
	return r.update(ctx, taskID, "priority", priority)
}

func (r *taskRepository) update(ctx context.Context, taskID, column, value string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("task_id = ?", taskID).
		Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
