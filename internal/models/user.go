package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a staff account allowed to run admin operations.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Username     string         `json:"username" gorm:"unique;not null"`
	PasswordHash string         `json:"-" gorm:"not null"`
	PhoneNumber  string         `json:"phoneNumber"`
	Role         UserRole       `json:"role" gorm:"default:'staff'"` // super_admin, admin, staff
	IsActive     bool           `json:"isActive" gorm:"default:true"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

type UserRole string

const (
	SuperAdmin UserRole = "super_admin"
	Admin      UserRole = "admin"
	Staff      UserRole = "staff"
)

func (r UserRole) CanAdminister() bool {
	return r == SuperAdmin || r == Admin
}
