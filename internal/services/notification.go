package services

import (
	"context"
	"log/slog"

	"campusdesk/internal/apperr"
	"campusdesk/internal/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Push stores an inbox entry. Failures are logged; the action that
// triggered the notification has already been committed.
func (s *NotificationService) Push(ctx context.Context, userID uint, actorID *uint, typ models.NotificationType, message, link string) {
	if s == nil {
		return
	}
	n := models.Notification{UserID: userID, ActorID: actorID, Type: typ, Message: message, Link: link}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		slog.Error("failed to create notification", "user_id", userID, "type", typ, "error", err)
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var out []models.Notification
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	return out, storageErr("list notifications", err)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, storageErr("count notifications", err)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).Update("is_read", true)
	if res.Error != nil {
		return storageErr("mark notification read", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true).Error
	return storageErr("mark notifications read", err)
}
