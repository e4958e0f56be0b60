package services

import (
	"context"
	"testing"
	"time"

	"github.com/nivram710/snapline/backend/internal/events"
	"github.com/nivram710/snapline/backend/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestNotificationService(window time.Duration) (*NotificationService, *fakeNotificationRepo, *capturePublisher) {
	repo := newFakeNotificationRepo()
	publisher := &capturePublisher{}
	svc := NewNotificationService(repo, publisher, window, testLogger())
	return svc, repo, publisher
}

func TestFingerprintBuckets(t *testing.T) {
	window := time.Hour
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	same := Fingerprint("like", 1, 2, "post", "p1", base.Add(30*time.Minute), window)
	require.Equal(t, Fingerprint("like", 1, 2, "post", "p1", base, window), same)

	later := Fingerprint("like", 1, 2, "post", "p1", base.Add(window), window)
	require.NotEqual(t, same, later)

	otherActor := Fingerprint("like", 3, 2, "post", "p1", base, window)
	require.NotEqual(t, same, otherActor)

	otherTarget := Fingerprint("like", 1, 2, "post", "p2", base, window)
	require.NotEqual(t, same, otherTarget)
}

func TestCreateDedupesWithinWindow(t *testing.T) {
	svc, _, publisher := newTestNotificationService(time.Hour)
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	ctx := context.Background()

	first, created, err := svc.Create(ctx, 2, 1, models.NotificationTypeLike, "p1", "post", "liked your post")
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, first)

	svc.now = func() time.Time { return base.Add(20 * time.Minute) }
	second, created, err := svc.Create(ctx, 2, 1, models.NotificationTypeLike, "p1", "post", "liked your post")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.CreatedAt, second.CreatedAt, "duplicate must not touch the stored timestamp")

	require.Len(t, publisher.byType(events.TypeNotification), 1, "duplicate must not publish")
}

func TestCreateNewRecordAfterWindow(t *testing.T) {
	svc, _, publisher := newTestNotificationService(time.Hour)
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	ctx := context.Background()

	first, created, err := svc.Create(ctx, 2, 1, models.NotificationTypeLike, "p1", "post", "liked your post")
	require.NoError(t, err)
	require.True(t, created)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	second, created, err := svc.Create(ctx, 2, 1, models.NotificationTypeLike, "p1", "post", "liked your post")
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, second.ID)

	require.Len(t, publisher.byType(events.TypeNotification), 2)
}

func TestCreateDistinctTuplesNotDeduped(t *testing.T) {
	svc, repo, _ := newTestNotificationService(time.Hour)
	ctx := context.Background()

	_, created, err := svc.Create(ctx, 2, 1, models.NotificationTypeLike, "p1", "post", "liked your post")
	require.NoError(t, err)
	require.True(t, created)

	_, created, err = svc.Create(ctx, 2, 1, models.NotificationTypeComment, "p1", "post", "commented on your post")
	require.NoError(t, err)
	require.True(t, created)

	count, err := repo.GetUnreadCount(2)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestCreateDropsSelfNotification(t *testing.T) {
	svc, repo, publisher := newTestNotificationService(time.Hour)

	notification, created, err := svc.Create(context.Background(), 5, 5, models.NotificationTypeLike, "p1", "post", "liked your post")
	require.NoError(t, err)
	require.False(t, created)
	require.Nil(t, notification)

	count, err := repo.GetUnreadCount(5)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, publisher.byType(events.TypeNotification))
}

func TestMarkReadIdempotent(t *testing.T) {
	svc, repo, _ := newTestNotificationService(time.Hour)
	ctx := context.Background()

	notification, _, err := svc.Create(ctx, 2, 1, models.NotificationTypeFollow, "1", "user", "started following you")
	require.NoError(t, err)

	wasAlreadyRead, err := svc.MarkRead(ctx, notification.ID, 2)
	require.NoError(t, err)
	require.False(t, wasAlreadyRead)

	stored, err := repo.GetByID(notification.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReadAt)
	firstReadAt := *stored.ReadAt

	wasAlreadyRead, err = svc.MarkRead(ctx, notification.ID, 2)
	require.NoError(t, err)
	require.True(t, wasAlreadyRead)

	stored, err = repo.GetByID(notification.ID)
	require.NoError(t, err)
	require.Equal(t, firstReadAt, *stored.ReadAt)
}

func TestMarkReadOnlyRecipient(t *testing.T) {
	svc, _, _ := newTestNotificationService(time.Hour)
	ctx := context.Background()

	notification, _, err := svc.Create(ctx, 2, 1, models.NotificationTypeFollow, "1", "user", "started following you")
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, notification.ID, 1)
	require.ErrorIs(t, err, ErrNotAuthorized)

	_, err = svc.MarkRead(ctx, 999, 2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkAllReadReturnsTransitionCount(t *testing.T) {
	svc, _, _ := newTestNotificationService(time.Hour)
	ctx := context.Background()

	for i, ntype := range []string{models.NotificationTypeLike, models.NotificationTypeComment, models.NotificationTypeFollow} {
		_, created, err := svc.Create(ctx, 2, uint(10+i), ntype, "p1", "post", "activity")
		require.NoError(t, err)
		require.True(t, created)
	}

	count, err := svc.MarkAllRead(ctx, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	// repeat is a no-op, zero is a valid result
	count, err = svc.MarkAllRead(ctx, 2)
	require.NoError(t, err)
	require.Zero(t, count)

	unread, err := svc.UnreadCount(ctx, 2)
	require.NoError(t, err)
	require.Zero(t, unread)
}
