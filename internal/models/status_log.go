package models

import (
	"time"
)

const (
	EntityLeave    = "leave"
	EntityGatePass = "gate_pass"
	EntityIssue    = "issue"
)

// StatusLog is an append-only record of lifecycle transitions.
type StatusLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntityKind string    `gorm:"size:20;not null;index:idx_status_log_entity" json:"entity_kind"`
	EntityID   uint      `gorm:"not null;index:idx_status_log_entity" json:"entity_id"`
	ActorID    uint      `gorm:"not null" json:"actor_id"`
	FromStatus string    `gorm:"size:20" json:"from"`
	ToStatus   string    `gorm:"size:20;not null" json:"to"`
	Note       string    `gorm:"size:255" json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}
