package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is the durable pairing of exactly two users plus the shared
// thread metadata (MongoDB). The unread_counts map is keyed by the decimal
// user id because BSON map keys must be strings; it is never serialized to
// clients directly, see ToView.
type Conversation struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ParticipantKey string             `json:"-" bson:"participant_key"`
	Participants   []uint             `json:"participants" bson:"participants"`
	LastMessageID  string             `json:"last_message_id,omitempty" bson:"last_message_id,omitempty"`
	LastMessageAt  time.Time          `json:"last_message_at" bson:"last_message_at"`
	UnreadCounts   map[string]int64   `json:"-" bson:"unread_counts"`
	IsActive       bool               `json:"is_active" bson:"is_active"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// ConversationView is the per-requester public representation: the unread
// count of the requesting participant only, never the raw map.
type ConversationView struct {
	ID            string    `json:"id"`
	Participants  []uint    `json:"participants"`
	LastMessageID string    `json:"last_message_id,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int64     `json:"unread_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// ParticipantKey normalizes an unordered user pair into the unique lookup key
// a conversation is found-or-created under.
func ParticipantKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// UnreadKey is the map key used for a participant's unread counter.
func UnreadKey(userID uint) string {
	return fmt.Sprintf("%d", userID)
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID. The second
// return value is false when userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID uint) (uint, bool) {
	if !c.HasParticipant(userID) {
		return 0, false
	}
	for _, p := range c.Participants {
		if p != userID {
			return p, true
		}
	}
	return 0, false
}

// UnreadFor returns userID's unread counter, zero when absent.
func (c *Conversation) UnreadFor(userID uint) int64 {
	return c.UnreadCounts[UnreadKey(userID)]
}

// ToView builds the public representation for the given requester.
func (c *Conversation) ToView(userID uint) ConversationView {
	return ConversationView{
		ID:            c.ID.Hex(),
		Participants:  c.Participants,
		LastMessageID: c.LastMessageID,
		LastMessageAt: c.LastMessageAt,
		UnreadCount:   c.UnreadFor(userID),
		CreatedAt:     c.CreatedAt,
	}
}

// StartConversationRequest defines the request body for find-or-create
type StartConversationRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}
