package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleProctor  UserRole = "proctor"
	RoleOperator UserRole = "operator"
	RoleAdmin    UserRole = "admin"
)

// User mirrors the identity provider's record. Authentication itself is an
// external collaborator; this service only joins display fields.
type User struct {
	ID       string `json:"id" gorm:"primaryKey;size:255"`
	FullName string `json:"full_name" gorm:"size:100"`
	Email    string `json:"email" gorm:"uniqueIndex;not null;size:255"`

	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
