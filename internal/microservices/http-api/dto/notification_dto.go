package dto

import (
	"time"

	"imis/internal/microservices/http-api/models"
)

// NotificationResponse is one inbox entry; the recipient list is never exposed
type NotificationResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Details   string    `json:"details"`
	ProjectID string    `json:"projectId,omitempty"`
	TaskID    string    `json:"taskId,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Date      time.Time `json:"date"`
}

// FromModelToNotificationResponse converts a Notification model to its response DTO
func FromModelToNotificationResponse(n *models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Details:   n.Details,
		ProjectID: deref(n.ProjectID),
		TaskID:    deref(n.TaskID),
		Actor:     deref(n.Actor),
		Date:      n.CreatedAt,
	}
}

// NotificationListResponse wraps the caller's inbox
type NotificationListResponse struct {
	Data  []NotificationResponse `json:"data"`
	Total int                    `json:"total"`
}

// ClearNotificationsResponse reports how many records the caller was removed from
type ClearNotificationsResponse struct {
	Removed int `json:"removed"`
}

// PresenceResponse is the live connection summary
type PresenceResponse struct {
	Online int `json:"online"`
	Rooms  int `json:"rooms"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
