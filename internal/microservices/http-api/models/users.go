package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the profile row the realtime layer resolves principals against.
// Credentials live with the excluded auth service.
type User struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	DisplayName string    `gorm:"column:display_name;not null" json:"displayName"`
	Mail        string    `gorm:"column:mail;index" json:"mail"`
	JobTitle    string    `gorm:"column:job_title" json:"jobTitle"`
	Department  string    `json:"department"`
	Avatar      string    `json:"avatar"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate hook to set UUID before creating a User
func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return
}

func (User) TableName() string {
	return "users"
}
