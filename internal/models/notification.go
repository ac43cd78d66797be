package models

import (
	"time"
)

type NotificationType string

const (
	NotificationLeaveApproved NotificationType = "leave_approved"
	NotificationLeaveRejected NotificationType = "leave_rejected"
	NotificationIssueResolved NotificationType = "issue_resolved"
	NotificationSystem        NotificationType = "system"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // receiver
	ActorID   *uint            `gorm:"index" json:"actor_id"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Message   string           `gorm:"type:text" json:"message"`
	Link      string           `json:"link"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
