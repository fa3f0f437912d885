package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is the durable record written once per dispatch.
// Recipients holds every addressed principal id, online or not.
type Notification struct {
	ID         int64                       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title      string                      `gorm:"not null" json:"title"`
	Details    string                      `gorm:"type:text" json:"details"`
	ProjectID  *string                     `gorm:"type:uuid;index" json:"projectId,omitempty"`
	TaskID     *string                     `gorm:"type:uuid" json:"taskId,omitempty"`
	Recipients datatypes.JSONSlice[string] `gorm:"type:jsonb;not null" json:"recipients"`
	Actor      *string                     `gorm:"type:uuid" json:"actor,omitempty"`
	CreatedAt  time.Time                   `gorm:"default:CURRENT_TIMESTAMP;index" json:"date"`
}

func (Notification) TableName() string {
	return "notifications"
}
