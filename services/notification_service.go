package services

import (
	"context"
	"errors"

	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
)

// NotificationService is the read side of notifications; writes go
// through the Notifier.
type NotificationService struct {
	notificationRepo repositories.NotificationRepository
}

func NewNotificationService(notificationRepo repositories.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

func (s *NotificationService) ListForUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]*models.Notification, error) {
	return s.notificationRepo.ListByRecipient(ctx, userID, unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID int) error {
	if err := s.notificationRepo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
