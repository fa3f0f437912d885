package models

import (
	"slices"

	"gorm.io/datatypes"
)

// Chat is a private thread; Recipients defines who may join it
type Chat struct {
	ChatID     string                      `gorm:"column:chat_id;primaryKey" json:"chatId"`
	ProjectID  string                      `gorm:"type:uuid;index" json:"projectId"`
	Recipients datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"recipients"`
}

func (Chat) TableName() string {
	return "chats"
}

func (c *Chat) HasParticipant(userID string) bool {
	return slices.Contains(c.Recipients, userID)
}
