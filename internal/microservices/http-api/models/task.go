package models

import (
	"time"

	"gorm.io/datatypes"
)

type Task struct {
	ID         string                      `gorm:"column:task_id;primaryKey;type:uuid" json:"taskId"`
	ProjectID  string                      `gorm:"type:uuid;not null;index" json:"projectId"`
	Title      string                      `gorm:"not null" json:"title"`
	Status     string                      `gorm:"default:'Not Started'" json:"status"`
	Priority   string                      `gorm:"default:'Normal'" json:"priority"`
	AssignedTo datatypes.JSONSlice[string] `gorm:"column:assigned_to;type:jsonb" json:"assignedTo"`
	CreatedBy  string                      `gorm:"type:uuid" json:"createdBy"`
	CreatedAt  time.Time                   `json:"createdAt"`
	UpdatedAt  time.Time                   `json:"updatedAt"`
}

func (Task) TableName() string {
	return "tasks"
}

// Watchers returns assignees plus the creator, without duplicates
func (t *Task) Watchers() []string {
	seen := make(map[string]struct{}, len(t.AssignedTo)+1)
	out := make([]string, 0, len(t.AssignedTo)+1)
	for _, id := range append([]string{t.CreatedBy}, t.AssignedTo...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
