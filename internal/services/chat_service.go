package services

import (
	"context"
	"strings"
	"time"

	"github.com/nivram710/snapline/backend/internal/events"
	"github.com/nivram710/snapline/backend/internal/models"
	"github.com/nivram710/snapline/backend/internal/repositories"
	"go.uber.org/zap"
)

// MessagePayload is the tagged-variant payload of a message. Each variant
// enforces its own required fields, so "content required iff text" holds by
// construction instead of a runtime conditional downstream.
type MessagePayload interface {
	apply(m *models.Message) error
}

// TextPayload carries the body of a text message.
type TextPayload struct {
	Content string
}

func (p TextPayload) apply(m *models.Message) error {
	if strings.TrimSpace(p.Content) == "" {
		return ErrMissingContent
	}
	m.Type = models.MessageTypeText
	m.Content = p.Content
	return nil
}

// MediaPayload carries a stored-media reference for image/video/audio/file
// messages. The core never touches media bytes, only the reference.
type MediaPayload struct {
	Kind models.MessageType
	Ref  string
}

func (p MediaPayload) apply(m *models.Message) error {
	if !p.Kind.IsMedia() {
		return ErrUnknownMessageType
	}
	if p.Ref == "" {
		return ErrMissingMedia
	}
	m.Type = p.Kind
	m.MediaRef = p.Ref
	return nil
}

// PayloadFromRequest builds the right payload variant from the wire request.
// A malformed payload is rejected here, before any store work starts.
func PayloadFromRequest(req models.SendMessageRequest) (MessagePayload, error) {
	t := models.MessageType(req.Type)
	var payload MessagePayload
	switch {
	case t == models.MessageTypeText:
		payload = TextPayload{Content: req.Content}
	case t.IsMedia():
		payload = MediaPayload{Kind: t, Ref: req.MediaRef}
	default:
		return nil, ErrUnknownMessageType
	}
	if err := payload.apply(&models.Message{}); err != nil {
		return nil, err
	}
	return payload, nil
}

// ChatService implements pairwise conversations and the message pipeline:
// find-or-create, send with unread-counter increment, read transitions and
// fan-out events after the durable writes commit.
type ChatService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	notifications *NotificationService
	publisher     events.Publisher
	log           *zap.SugaredLogger
}

func NewChatService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	notifications *NotificationService,
	publisher events.Publisher,
	log *zap.SugaredLogger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		notifications: notifications,
		publisher:     publisher,
		log:           log,
	}
}

// FindOrCreateConversation resolves the single conversation for the unordered
// pair, creating it when absent. Concurrent calls for the same pair converge
// on one conversation via the store's atomic upsert.
func (s *ChatService) FindOrCreateConversation(ctx context.Context, userA, userB uint) (*models.Conversation, error) {
	if userA == userB {
		return nil, ErrSelfReference
	}
	if userA == 0 || userB == 0 {
		return nil, ErrValidation
	}
	conv, err := s.conversations.FindOrCreate(ctx, userA, userB)
	if err != nil {
		return nil, storeErr(err)
	}
	return conv, nil
}

// GetOtherParticipant returns the conversation participant that is not userID.
func (s *ChatService) GetOtherParticipant(conv *models.Conversation, userID uint) (uint, error) {
	other, ok := conv.OtherParticipant(userID)
	if !ok {
		return 0, ErrNotParticipant
	}
	return other, nil
}

// Send persists a message from sender to receiver and wires up everything
// around it: the conversation, the receiver's unread counter, the message
// notification and the real-time event. If the counter increment cannot be
// confirmed the send is reported as failed rather than silently detached
// from it.
func (s *ChatService) Send(ctx context.Context, senderID, receiverID uint, payload MessagePayload) (*models.Message, error) {
	if senderID == receiverID {
		return nil, ErrSelfReference
	}

	msg := &models.Message{SenderID: senderID, ReceiverID: receiverID}
	if err := payload.apply(msg); err != nil {
		return nil, err
	}

	conv, err := s.FindOrCreateConversation(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	msg.ConversationID = conv.ID

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, storeErr(err)
	}
	if err := s.conversations.RecordOutgoingMessage(ctx, conv.ID.Hex(), receiverID, msg.ID.Hex(), msg.CreatedAt); err != nil {
		return nil, storeErr(err)
	}

	// Best-effort side effects; the durable writes above already committed.
	if s.notifications != nil {
		if _, _, err := s.notifications.Create(ctx, receiverID, senderID,
			models.NotificationTypeMessage, msg.ID.Hex(), "message", "sent you a message"); err != nil {
			s.log.Warnw("message notification failed", "message_id", msg.ID.Hex(), "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.New(events.TypeNewMessage, receiverID, msg)); err != nil {
			s.log.Warnw("new_message event publish failed", "message_id", msg.ID.Hex(), "error", err)
		}
	}

	return msg, nil
}

// MarkMessageRead performs the receiver's Created -> Read transition. The
// transition is idempotent: a repeat call reports wasAlreadyRead without
// touching the stored timestamp.
func (s *ChatService) MarkMessageRead(ctx context.Context, messageID string, requestingUserID uint) (wasAlreadyRead bool, err error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return false, storeErr(err)
	}
	if msg.ReceiverID != requestingUserID {
		return false, ErrNotAuthorized
	}

	alreadyRead, err := s.messages.MarkRead(ctx, messageID, time.Now())
	if err != nil {
		return false, storeErr(err)
	}
	if alreadyRead {
		return true, nil
	}

	if err := s.conversations.ResetUnread(ctx, msg.ConversationID.Hex(), requestingUserID); err != nil {
		return false, storeErr(err)
	}
	return false, nil
}

// MarkConversationRead zeroes the caller's unread counter for the
// conversation. Safe to repeat; an already-zero counter stays zero.
func (s *ChatService) MarkConversationRead(ctx context.Context, conversationID string, userID uint) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return storeErr(err)
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}
	return storeErr(s.conversations.ResetUnread(ctx, conversationID, userID))
}

// CloseConversation deactivates the conversation on behalf of a participant.
// Deactivation frees the pair's key, so a later find-or-create between the
// same two users starts a fresh conversation.
func (s *ChatService) CloseConversation(ctx context.Context, conversationID string, userID uint) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return storeErr(err)
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}
	return storeErr(s.conversations.Deactivate(ctx, conversationID))
}

// DeleteMessage removes a message on behalf of its sender. Unread counters
// reflect message volume at send time and are not retroactively adjusted.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID string, requestingUserID uint) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return storeErr(err)
	}
	if msg.SenderID != requestingUserID {
		return ErrNotAuthorized
	}
	return storeErr(s.messages.Delete(ctx, messageID))
}

// GetConversationMessages returns a participant's view of the thread,
// newest-first; callers reverse for chronological display.
func (s *ChatService) GetConversationMessages(ctx context.Context, conversationID string, requestingUserID uint, page, limit int) ([]models.Message, int64, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	if !conv.HasParticipant(requestingUserID) {
		return nil, 0, ErrNotParticipant
	}
	messages, total, err := s.messages.ListByConversation(ctx, conversationID, page, limit)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	return messages, total, nil
}

// GetUserConversations lists the user's conversations by last activity, each
// carrying only that user's unread counter.
func (s *ChatService) GetUserConversations(ctx context.Context, userID uint, page, limit int) ([]models.ConversationView, int64, error) {
	conversations, total, err := s.conversations.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	views := make([]models.ConversationView, len(conversations))
	for i := range conversations {
		views[i] = conversations[i].ToView(userID)
	}
	return views, total, nil
}
