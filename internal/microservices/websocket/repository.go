package websocket

import (
	"context"

	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/identity"
	"imis/internal/microservices/notify"
)

// Storage and service collaborators the gateway and router call into.
// The gorm repositories satisfy these directly.

type PrincipalResolver interface {
	Resolve(ctx context.Context, id string) (*identity.Profile, error)
}

type ProjectStore interface {
	GetByID(ctx context.Context, projectID string) (*models.Project, error)
	UpdateStatus(ctx context.Context, projectID, status string) error
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	ListMemberIDs(ctx context.Context, projectID string) ([]string, error)
}

type TaskStore interface {
	GetByID(ctx context.Context, taskID string) (*models.Task, error)
	UpdateStatus(ctx context.Context, taskID, status string) error
	UpdatePriority(ctx context.Context, taskID, priority string) error
}

type CommentStore interface {
	Create(ctx context.Context, comment *models.TaskComment) error
	GetByID(ctx context.Context, commentID string) (*models.TaskComment, error)
	ToggleLike(ctx context.Context, commentID string, who models.LikedBy) (*models.TaskComment, bool, error)
}

type ChatDirectory interface {
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
}

type MessageStore interface {
	Save(ctx context.Context, message *models.Message) error
}

type AuditLog interface {
	Append(ctx context.Context, entry *models.Log) error
}

type Notifier interface {
	Notify(in notify.Intent)
}
