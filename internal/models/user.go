package models

import (
	"time"

	"campusdesk/internal/authz"
)

type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"not null" json:"name"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	Password      string     `gorm:"not null" json:"-"` // bcrypt hash
	Phone         string     `gorm:"size:20" json:"phone"`
	RollNumber    *string    `gorm:"size:20" json:"roll_number"` // nil unless student
	Role          authz.Role `gorm:"size:20;default:'public';not null;index" json:"role"`
	EmailVerified bool       `gorm:"default:false" json:"email_verified"`
	VerifyCode    string     `gorm:"size:20" json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Roll returns the roll number or "N/A".
func (u *User) Roll() string {
	if u.RollNumber == nil || *u.RollNumber == "" {
		return "N/A"
	}
	return *u.RollNumber
}
