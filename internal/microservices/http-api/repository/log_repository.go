package repository

import (
	"context"

	"imis/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// LogRepository appends to the system and project-activity logs
type LogRepository interface {
	Append(ctx context.Context, entry *models.Log) error
}

type logRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Append(ctx context.Context, entry *models.Log) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
