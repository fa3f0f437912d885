package models

import "time"

const (
	MessageKindDiscussion = "discussion"
	MessageKindPrivate    = "private"
)

// Message is one discussion or private chat line
type Message struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID      string    `gorm:"not null;index:idx_messages_room_id" json:"roomId"`
	ProjectID   string    `gorm:"type:uuid;index" json:"projectId"`
	Kind        string    `gorm:"not null" json:"type"`
	SenderID    string    `gorm:"type:uuid;not null" json:"senderId"`
	RecipientID *string   `gorm:"type:uuid" json:"recipientId,omitempty"`
	Body        string    `gorm:"not null;type:text" json:"message"`
	TimeSent    time.Time `json:"timeSent"`
	IsRead      bool      `gorm:"default:false" json:"isRead"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
