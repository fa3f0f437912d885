package repository

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"imis/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	// RemoveRecipient drops userID from one record, deleting the record once nobody is left
	RemoveRecipient(ctx context.Context, notificationID int64, userID string) error
	// RemoveRecipientFromAll applies RemoveRecipient to every record addressed to userID
	RemoveRecipientFromAll(ctx context.Context, userID string) (int, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	contains, err := containsUser(userID)
	if err != nil {
		return nil, err
	}

	var notifications []models.Notification
	err = r.db.WithContext(ctx).
		Where("recipients @> ?::jsonb", contains).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) RemoveRecipient(ctx context.Context, notificationID int64, userID string) error {
	contains, err := containsUser(userID)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n models.Notification
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND recipients @> ?::jsonb", notificationID, contains).
			First(&n).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return removeFrom(tx, &n, userID)
	})
}

func (r *notificationRepository) RemoveRecipientFromAll(ctx context.Context, userID string) (int, error) {
	contains, err := containsUser(userID)
	if err != nil {
		return 0, err
	}

	var removed int
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.Notification
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("recipients @> ?::jsonb", contains).
			Find(&rows).Error
		if err != nil {
			return err
		}
		for i := range rows {
			if err := removeFrom(tx, &rows[i], userID); err != nil {
				return err
			}
		}
		removed = len(rows)
		return nil
	})
	return removed, err
}

func removeFrom(tx *gorm.DB, n *models.Notification, userID string) error {
	n.Recipients = slices.DeleteFunc(n.Recipients, func(id string) bool { return id == userID })
	if len(n.Recipients) == 0 {
		return tx.Delete(&models.Notification{}, n.ID).Error
	}
	return tx.Model(n).Update("recipients", n.Recipients).Error
}

// containsUser renders the jsonb containment operand for a single id
func containsUser(userID string) (string, error) {
	b, err := json.Marshal([]string{userID})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
