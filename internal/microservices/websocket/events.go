package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"imis/internal/microservices/identity"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// bind decodes and validates an event payload
func bind(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

type projectRoomRequest struct {
	ProjectID string `json:"projectId" validate:"required,max=64"`
}

type privateRoomRequest struct {
	ProjectID string `json:"projectId" validate:"required,max=64"`
	RoomID    string `json:"roomId" validate:"required,max=128"`
}

// workItem is the item reference clients send; titles are re-read from storage
type workItem struct {
	ID     string `json:"id"`
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
}

func (w workItem) itemID() string {
	if w.TaskID != "" {
		return w.TaskID
	}
	return w.ID
}

type changeStatusRequest struct {
	ProjectRoom string   `json:"projectroom" validate:"required,max=64"`
	Item        workItem `json:"item"`
	Type        string   `json:"type" validate:"required,oneof=projects tasks"`
	Status      string   `json:"status" validate:"required,max=64"`
}

type changePriorityRequest struct {
	ProjectRoom string   `json:"projectroom" validate:"required,max=64"`
	Item        workItem `json:"item"`
	Priority    string   `json:"priority" validate:"required,max=64"`
}

type addCommentRequest struct {
	ProjectID string   `json:"projectId" validate:"required,max=64"`
	Item      workItem `json:"item"`
	Comment   string   `json:"comment" validate:"required,max=5000"`
}

type likeCommentRequest struct {
	Comment struct {
		CommentID string `json:"commentId" validate:"required,max=64"`
	} `json:"comment"`
}

type discussionMessageRequest struct {
	ProjectID   string    `json:"projectId" validate:"required,max=64"`
	RoomID      string    `json:"roomId" validate:"omitempty,max=128"`
	WorkOrderNo string    `json:"workOrderNo" validate:"max=64"`
	Message     string    `json:"message" validate:"required,max=5000"`
	TimeSent    time.Time `json:"timeSent"`
}

type privateMessageRequest struct {
	ProjectID string `json:"projectId" validate:"required,max=64"`
	RoomID    string `json:"roomId" validate:"required,max=128"`
	Recipient struct {
		ID string `json:"id" validate:"required"`
	} `json:"recipient"`
	Message  string    `json:"message" validate:"required,max=5000"`
	TimeSent time.Time `json:"timeSent"`
	IsRead   bool      `json:"isRead"`
}

// Outbound payloads

type roomUsersPayload struct {
	Scope     string             `json:"scope"`
	ProjectID string             `json:"projectId"`
	Users     []identity.Summary `json:"users"`
}

type commentView struct {
	CommentID string           `json:"commentId"`
	ProjectID string           `json:"projectId"`
	TaskID    string           `json:"taskId"`
	Details   string           `json:"details"`
	CreatedBy identity.Summary `json:"createdBy"`
	LikedBy   []likedBySummary `json:"likedBy"`
	CreatedAt time.Time        `json:"createdAt"`
}

type likedBySummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type receiveCommentPayload struct {
	TaskID  string      `json:"taskId"`
	Comment commentView `json:"comment"`
}

type commentLikedPayload struct {
	CommentID string           `json:"commentId"`
	LikedBy   []likedBySummary `json:"likedBy"`
}

type messageView struct {
	ID          int64            `json:"id"`
	Type        string           `json:"type"`
	ProjectID   string           `json:"projectId"`
	RoomID      string           `json:"roomId"`
	WorkOrderNo string           `json:"workOrderNo,omitempty"`
	Sender      identity.Summary `json:"sender"`
	RecipientID string           `json:"recipientId,omitempty"`
	Message     string           `json:"message"`
	TimeSent    time.Time        `json:"timeSent"`
	IsRead      bool             `json:"isRead"`
}
