package models

import (
	"strings"
	"time"
)

// Account roles recognised by the workflow.
const (
	RoleAdmin   = "admin"
	RoleFaculty = "faculty"
	RoleHOD     = "hod"
	RoleStudent = "student"
)

// User is an authenticated account. The password column holds a bcrypt hash
// and is never serialized.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Username   string     `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email      string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password   string     `gorm:"size:255;not null" json:"-"`
	Role       string     `gorm:"size:16;not null" json:"role"`
	FirstName  string     `gorm:"size:128;not null" json:"first_name"`
	LastName   string     `gorm:"size:128;not null" json:"last_name"`
	RollNumber string     `gorm:"size:64" json:"roll_number,omitempty"`
	Department string     `gorm:"size:128" json:"department,omitempty"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	LastLogin  *time.Time `json:"last_login"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FullName joins first and last name the way the UI displays actors.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsValidRole reports whether the given role is one the system recognises.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleFaculty, RoleHOD, RoleStudent:
		return true
	}
	return false
}
