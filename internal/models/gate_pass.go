package models

import (
	"fmt"
	"time"
)

type GatePassStatus string

const (
	GatePassOut      GatePassStatus = "out"
	GatePassReturned GatePassStatus = "returned"
)

const GatePassMarket = "market"

// GatePass records a short market trip. The holder's details are copied at
// exit time so the gate log survives profile edits.
type GatePass struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	User       User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name       string         `json:"name"`
	RollNumber string         `gorm:"size:20" json:"roll_number"`
	Phone      string         `gorm:"size:20" json:"phone"`
	Email      string         `json:"email"`
	Type       string         `gorm:"size:20;default:'market';not null" json:"type"`
	Status     GatePassStatus `gorm:"size:20;not null;index" json:"status"`
	LeaveTime  time.Time      `gorm:"not null" json:"leave_time"`
	ReturnTime *time.Time     `json:"return_time"`
	ActiveKey  *string        `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
}

func GatePassActiveKey(userID uint, passType string) string {
	return fmt.Sprintf("active:%d:%s", userID, passType)
}
