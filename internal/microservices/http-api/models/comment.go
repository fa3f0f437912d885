package models

import (
	"time"

	"gorm.io/datatypes"
)

// LikedBy is the principal summary stored in a comment's liked_by column
type LikedBy struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail,omitempty"`
}

type TaskComment struct {
	CommentID string                       `gorm:"column:comment_id;primaryKey;type:uuid" json:"commentId"`
	ProjectID string                       `gorm:"type:uuid;not null;index" json:"projectId"`
	TaskID    string                       `gorm:"type:uuid;not null;index" json:"taskId"`
	Details   string                       `gorm:"not null;type:text" json:"details"`
	CreatedBy string                       `gorm:"type:uuid;not null" json:"createdBy"`
	LikedBy   datatypes.JSONSlice[LikedBy] `gorm:"column:liked_by;type:jsonb" json:"likedBy"`
	CreatedAt time.Time                    `gorm:"autoCreateTime" json:"createdAt"`
}

func (TaskComment) TableName() string {
	return "task_comments"
}

// ToggleLike removes who from the liked-by list if present, otherwise appends them.
// Returns true when the toggle was a like.
func (c *TaskComment) ToggleLike(who LikedBy) bool {
	for i, l := range c.LikedBy {
		if l.ID == who.ID {
			c.LikedBy = append(c.LikedBy[:i:i], c.LikedBy[i+1:]...)
			return false
		}
	}
	c.LikedBy = append(c.LikedBy, who)
	return true
}
