package models

import "time"

type Project struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	WorkOrderNo string    `gorm:"column:work_order_no;index" json:"workOrderNo"`
	Status      string    `gorm:"default:'Not Started'" json:"status"`
	Priority    string    `gorm:"default:'Normal'" json:"priority"`
	OwnerID     string    `gorm:"type:uuid" json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectMember links a user to a project; the pair is the primary key
type ProjectMember struct {
	ProjectID  string    `gorm:"primaryKey;type:uuid" json:"projectId"`
	UserID     string    `gorm:"primaryKey;type:uuid;index" json:"userId"`
	Role       string    `json:"role"`
	Permission string    `json:"permission"`
	CreatedAt  time.Time `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}
