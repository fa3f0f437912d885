package repository

import (
	"context"

	"imis/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Save(ctx context.Context, message *models.Message) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Save(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}
