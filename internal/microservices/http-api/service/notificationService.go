package service

import (
	"context"

	"imis/internal/microservices/http-api/dto"
	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/http-api/repository"

	"github.com/samber/lo"
)

type NotificationService interface {
	List(ctx context.Context, userID string) (*dto.NotificationListResponse, error)
	// Remove takes the user off one notification; repository.ErrNotFound when they were never on it
	Remove(ctx context.Context, userID string, notificationID int64) error
	RemoveAll(ctx context.Context, userID string) (int, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, userID string) (*dto.NotificationListResponse, error) {
	notifications, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := lo.Map(notifications, func(n models.Notification, _ int) dto.NotificationResponse {
		return dto.FromModelToNotificationResponse(&n)
	})
	return &dto.NotificationListResponse{Data: data, Total: len(data)}, nil
}

func (s *notificationService) Remove(ctx context.Context, userID string, notificationID int64) error {
	return s.repo.RemoveRecipient(ctx, notificationID, userID)
}

func (s *notificationService) RemoveAll(ctx context.Context, userID string) (int, error) {
	return s.repo.RemoveRecipientFromAll(ctx, userID)
}
