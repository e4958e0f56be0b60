package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nivram710/snapline/backend/internal/events"
	"github.com/nivram710/snapline/backend/internal/models"
	"github.com/nivram710/snapline/backend/internal/repositories"
	"go.uber.org/zap"
)

// NotificationService creates, deduplicates and transitions notifications.
// Near-duplicate creations inside the trailing dedup window collapse into the
// existing record via a fingerprint insert, so producers never pre-check.
type NotificationService struct {
	notifications repositories.NotificationRepository
	publisher     events.Publisher
	window        time.Duration
	log           *zap.SugaredLogger

	now func() time.Time
}

func NewNotificationService(
	notifications repositories.NotificationRepository,
	publisher events.Publisher,
	window time.Duration,
	log *zap.SugaredLogger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		publisher:     publisher,
		window:        window,
		log:           log,
		now:           time.Now,
	}
}

// Fingerprint collapses identical (type, actor, recipient, subject) tuples
// inside one dedup-window bucket to a single stable key.
func Fingerprint(ntype string, actorID, recipientID uint, targetType, targetID string, at time.Time, window time.Duration) string {
	bucket := at.Truncate(window).Unix()
	return fmt.Sprintf("%s:%d:%d:%s:%s:%d", ntype, actorID, recipientID, targetType, targetID, bucket)
}

// Create stores a notification unless it is a self-notification (silent
// no-op, nothing persisted) or a duplicate within the dedup window (the
// existing record is returned unchanged, timestamp untouched). The created
// flag tells the caller which happened.
func (s *NotificationService) Create(ctx context.Context, recipientID, actorID uint, ntype, targetID, targetType, message string) (*models.Notification, bool, error) {
	if recipientID == actorID {
		return nil, false, nil
	}

	now := s.now()
	notification := &models.Notification{
		Type:        ntype,
		ActorID:     actorID,
		RecipientID: recipientID,
		TargetID:    targetID,
		TargetType:  targetType,
		Fingerprint: Fingerprint(ntype, actorID, recipientID, targetType, targetID, now, s.window),
		Message:     message,
		CreatedAt:   now,
	}

	created, stored, err := s.notifications.CreateDeduped(notification)
	if err != nil {
		return nil, false, storeErr(err)
	}

	if created && s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.New(events.TypeNotification, recipientID, stored)); err != nil {
			s.log.Warnw("notification event publish failed", "notification_id", stored.ID, "error", err)
		}
	}
	return stored, created, nil
}

// MarkRead transitions a single notification for its recipient; repeating it
// reports wasAlreadyRead without touching the read timestamp.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, requestingUserID uint) (wasAlreadyRead bool, err error) {
	notification, err := s.notifications.GetByID(notificationID)
	if err != nil {
		return false, storeErr(err)
	}
	if notification.RecipientID != requestingUserID {
		return false, ErrNotAuthorized
	}

	transitioned, err := s.notifications.MarkAsRead(notificationID, s.now())
	if err != nil {
		return false, storeErr(err)
	}
	return !transitioned, nil
}

// MarkAllRead transitions every unread notification for the user and returns
// how many actually changed; zero is a valid result.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	count, err := s.notifications.MarkAllAsRead(userID, s.now())
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

// UnreadCount returns the user's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.notifications.GetUnreadCount(userID)
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}
