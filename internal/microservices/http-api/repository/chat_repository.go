package repository

import (
	"context"
	"errors"

	"imis/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type ChatRepository interface {
	GetByID(ctx context.Context, chatID string) (*models.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, "chat_id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// IsParticipant is false for unknown chats rather than an error
func (r *chatRepository) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	chat, err := r.GetByID(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return chat.HasParticipant(userID), nil
}
