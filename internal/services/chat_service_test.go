package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nivram710/snapline/backend/internal/events"
	"github.com/nivram710/snapline/backend/internal/models"
)

func newTestChatService() (*ChatService, *fakeConversationRepo, *fakeMessageRepo, *fakeNotificationRepo, *capturePublisher) {
	convRepo := newFakeConversationRepo()
	msgRepo := newFakeMessageRepo()
	notifRepo := newFakeNotificationRepo()
	publisher := &capturePublisher{}
	notifService := NewNotificationService(notifRepo, publisher, time.Hour, testLogger())
	svc := NewChatService(convRepo, msgRepo, notifService, publisher, testLogger())
	return svc, convRepo, msgRepo, notifRepo, publisher
}

func TestFindOrCreateConversationSamePair(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	first, err := svc.FindOrCreateConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateConversation failed: %v", err)
	}
	// reversed order resolves to the same conversation
	second, err := svc.FindOrCreateConversation(ctx, 2, 1)
	if err != nil {
		t.Fatalf("FindOrCreateConversation reversed failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one conversation for the pair, got %s and %s", first.ID.Hex(), second.ID.Hex())
	}
}

func TestFindOrCreateConversationConcurrent(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := uint(1), uint(2)
			if i%2 == 0 {
				a, b = b, a
			}
			conv, err := svc.FindOrCreateConversation(ctx, a, b)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			ids[i] = conv.ID.Hex()
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got conversation %s, want %s", i, ids[i], ids[0])
		}
	}
}

func TestFindOrCreateConversationRejectsSelf(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()

	if _, err := svc.FindOrCreateConversation(context.Background(), 7, 7); !errors.Is(err, ErrSelfReference) {
		t.Fatalf("expected ErrSelfReference, got %v", err)
	}
}

func TestSendIncrementsReceiverUnread(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Send(ctx, 1, 2, TextPayload{Content: "hey"}); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}

	conv, err := svc.FindOrCreateConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateConversation failed: %v", err)
	}
	if got := conv.UnreadFor(2); got != 3 {
		t.Fatalf("receiver unread = %d, want 3", got)
	}
	if got := conv.UnreadFor(1); got != 0 {
		t.Fatalf("sender unread = %d, want 0", got)
	}
	if conv.LastMessageID == "" {
		t.Fatal("expected last_message_id to be set")
	}
}

func TestSendRejectsSelf(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()

	if _, err := svc.Send(context.Background(), 4, 4, TextPayload{Content: "hi"}); !errors.Is(err, ErrSelfReference) {
		t.Fatalf("expected ErrSelfReference, got %v", err)
	}
}

func TestSendPublishesEventAndNotification(t *testing.T) {
	svc, _, _, notifRepo, publisher := newTestChatService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, 1, 2, TextPayload{Content: "hello"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	published := publisher.byType(events.TypeNewMessage)
	if len(published) != 1 {
		t.Fatalf("expected 1 new_message event, got %d", len(published))
	}
	if published[0].TargetUserID != 2 {
		t.Fatalf("event targeted user %d, want 2", published[0].TargetUserID)
	}

	count, _ := notifRepo.GetUnreadCount(2)
	if count != 1 {
		t.Fatalf("receiver notification count = %d, want 1", count)
	}
	if msg.IsRead {
		t.Fatal("new message must start unread")
	}
}

func TestMarkMessageReadResetsUnread(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	var last *models.Message
	for i := 0; i < 3; i++ {
		msg, err := svc.Send(ctx, 1, 2, TextPayload{Content: "m"})
		if err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
		last = msg
	}

	wasAlreadyRead, err := svc.MarkMessageRead(ctx, last.ID.Hex(), 2)
	if err != nil {
		t.Fatalf("MarkMessageRead failed: %v", err)
	}
	if wasAlreadyRead {
		t.Fatal("first read must not report was_already_read")
	}

	conv, _ := svc.FindOrCreateConversation(ctx, 1, 2)
	if got := conv.UnreadFor(2); got != 0 {
		t.Fatalf("unread after read = %d, want 0", got)
	}

	// a new message after the reset counts from zero
	if _, err := svc.Send(ctx, 1, 2, TextPayload{Content: "again"}); err != nil {
		t.Fatalf("send after read failed: %v", err)
	}
	conv, _ = svc.FindOrCreateConversation(ctx, 1, 2)
	if got := conv.UnreadFor(2); got != 1 {
		t.Fatalf("unread after new message = %d, want 1", got)
	}
}

func TestMarkMessageReadIdempotent(t *testing.T) {
	svc, _, msgRepo, _, _ := newTestChatService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, 1, 2, TextPayload{Content: "once"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if wasAlreadyRead, err := svc.MarkMessageRead(ctx, msg.ID.Hex(), 2); err != nil || wasAlreadyRead {
		t.Fatalf("first read: wasAlreadyRead=%v err=%v", wasAlreadyRead, err)
	}

	stored, _ := msgRepo.GetByID(ctx, msg.ID.Hex())
	firstReadAt := stored.ReadAt

	if wasAlreadyRead, err := svc.MarkMessageRead(ctx, msg.ID.Hex(), 2); err != nil || !wasAlreadyRead {
		t.Fatalf("second read: wasAlreadyRead=%v err=%v", wasAlreadyRead, err)
	}

	stored, _ = msgRepo.GetByID(ctx, msg.ID.Hex())
	if !stored.ReadAt.Equal(*firstReadAt) {
		t.Fatalf("repeat read changed read_at from %v to %v", firstReadAt, stored.ReadAt)
	}
}

func TestMarkMessageReadOnlyReceiver(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, 1, 2, TextPayload{Content: "private"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if _, err := svc.MarkMessageRead(ctx, msg.ID.Hex(), 1); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("sender read: expected ErrNotAuthorized, got %v", err)
	}
	if _, err := svc.MarkMessageRead(ctx, msg.ID.Hex(), 99); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("outsider read: expected ErrNotAuthorized, got %v", err)
	}
}

func TestDeleteMessageOnlySender(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, 1, 2, TextPayload{Content: "oops"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := svc.DeleteMessage(ctx, msg.ID.Hex(), 2); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("receiver delete: expected ErrNotAuthorized, got %v", err)
	}
	if err := svc.DeleteMessage(ctx, msg.ID.Hex(), 1); err != nil {
		t.Fatalf("sender delete failed: %v", err)
	}
	if err := svc.DeleteMessage(ctx, msg.ID.Hex(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMessageKeepsUnreadCounter(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, 1, 2, TextPayload{Content: "counted"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := svc.DeleteMessage(ctx, msg.ID.Hex(), 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	conv, _ := svc.FindOrCreateConversation(ctx, 1, 2)
	if got := conv.UnreadFor(2); got != 1 {
		t.Fatalf("unread after delete = %d, want 1", got)
	}
}

func TestPayloadValidation(t *testing.T) {
	cases := []struct {
		name string
		req  models.SendMessageRequest
		want error
	}{
		{"empty text", models.SendMessageRequest{Type: "text", Content: "   "}, ErrMissingContent},
		{"media without ref", models.SendMessageRequest{Type: "image"}, ErrMissingMedia},
		{"unknown type", models.SendMessageRequest{Type: "hologram"}, ErrUnknownMessageType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PayloadFromRequest(tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%v must match ErrValidation", err)
			}
		})
	}

	if _, err := PayloadFromRequest(models.SendMessageRequest{Type: "video", MediaRef: "s3://bucket/v.mp4"}); err != nil {
		t.Fatalf("valid media payload rejected: %v", err)
	}
}

func TestGetConversationMessagesRequiresParticipant(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	conv, err := svc.FindOrCreateConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateConversation failed: %v", err)
	}

	if _, _, err := svc.GetConversationMessages(ctx, conv.ID.Hex(), 3, 1, 20); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestGetConversationMessagesPaginationIsConsistent(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	sent := make(map[string]bool, 5)
	var convID string
	for i := 0; i < 5; i++ {
		msg, err := svc.Send(ctx, 1, 2, TextPayload{Content: "m"})
		if err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
		sent[msg.ID.Hex()] = true
		convID = msg.ConversationID.Hex()
		time.Sleep(time.Millisecond)
	}

	seen := make(map[string]bool)
	var prev *models.Message
	for page := 1; page <= 3; page++ {
		messages, total, err := svc.GetConversationMessages(ctx, convID, 2, page, 2)
		if err != nil {
			t.Fatalf("page %d failed: %v", page, err)
		}
		if total != 5 {
			t.Fatalf("page %d total = %d, want 5", page, total)
		}
		for i := range messages {
			id := messages[i].ID.Hex()
			if seen[id] {
				t.Fatalf("message %s returned on more than one page", id)
			}
			seen[id] = true
			if prev != nil && messages[i].CreatedAt.After(prev.CreatedAt) {
				t.Fatalf("ordering broke across pages: %s newer than %s", id, prev.ID.Hex())
			}
			prev = &messages[i]
		}
	}

	if len(seen) != len(sent) {
		t.Fatalf("pages returned %d distinct messages, want %d", len(seen), len(sent))
	}
	for id := range sent {
		if !seen[id] {
			t.Fatalf("message %s skipped by pagination", id)
		}
	}
}

func TestGetUserConversationsScopedUnread(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	if _, err := svc.Send(ctx, 1, 2, TextPayload{Content: "a"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := svc.Send(ctx, 3, 2, TextPayload{Content: "b"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	views, total, err := svc.GetUserConversations(ctx, 2, 1, 20)
	if err != nil {
		t.Fatalf("GetUserConversations failed: %v", err)
	}
	if total != 2 || len(views) != 2 {
		t.Fatalf("got %d views (total %d), want 2", len(views), total)
	}
	for _, view := range views {
		if view.UnreadCount != 1 {
			t.Fatalf("view unread = %d, want 1", view.UnreadCount)
		}
	}
}

func TestCloseConversationRequiresParticipant(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	conv, err := svc.FindOrCreateConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateConversation failed: %v", err)
	}
	if err := svc.CloseConversation(ctx, conv.ID.Hex(), 3); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("close by outsider: got %v, want ErrNotParticipant", err)
	}
}

func TestCloseConversationFreesPair(t *testing.T) {
	svc, _, _, _, _ := newTestChatService()
	ctx := context.Background()

	conv, err := svc.FindOrCreateConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateConversation failed: %v", err)
	}
	if err := svc.CloseConversation(ctx, conv.ID.Hex(), 1); err != nil {
		t.Fatalf("CloseConversation failed: %v", err)
	}

	// closed conversations drop out of both users' lists
	views, total, err := svc.GetUserConversations(ctx, 2, 1, 20)
	if err != nil {
		t.Fatalf("GetUserConversations failed: %v", err)
	}
	if total != 0 || len(views) != 0 {
		t.Fatalf("got %d views (total %d) after close, want 0", len(views), total)
	}

	// the pair can start over with a fresh conversation
	fresh, err := svc.FindOrCreateConversation(ctx, 2, 1)
	if err != nil {
		t.Fatalf("FindOrCreateConversation after close failed: %v", err)
	}
	if fresh.ID == conv.ID {
		t.Fatalf("expected a new conversation after close, got the old one %s", conv.ID.Hex())
	}
}
