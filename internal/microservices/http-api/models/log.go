package models

import "time"

const (
	LogTypeSystem   = "syslog"
	LogTypeActivity = "activity"
)

type Log struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      string    `gorm:"not null;index" json:"type"`
	ProjectID *string   `gorm:"type:uuid;index" json:"projectId,omitempty"`
	ActorID   string    `gorm:"type:uuid" json:"actorId"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Version   string    `json:"version"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"date"`
}

func (Log) TableName() string {
	return "logs"
}
