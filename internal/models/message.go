package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageType enumerates the supported message payload kinds
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
)

// Valid reports whether t is one of the declared message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeFile:
		return true
	}
	return false
}

// IsMedia reports whether t requires a media reference instead of text content.
func (t MessageType) IsMedia() bool {
	return t.Valid() && t != MessageTypeText
}

// Message represents a message inside a pairwise conversation (MongoDB).
// Content is immutable after creation; the only state transition is the
// read flag, set once by the receiver together with read_at.
type Message struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversation_id" bson:"conversation_id"`
	SenderID       uint               `json:"sender_id" bson:"sender_id"`
	ReceiverID     uint               `json:"receiver_id" bson:"receiver_id"`
	Type           MessageType        `json:"type" bson:"type"`
	Content        string             `json:"content,omitempty" bson:"content,omitempty"`
	MediaRef       string             `json:"media_ref,omitempty" bson:"media_ref,omitempty"`
	IsRead         bool               `json:"is_read" bson:"is_read"`
	ReadAt         *time.Time         `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// SendMessageRequest defines the request body for sending a message
type SendMessageRequest struct {
	ReceiverID uint   `json:"receiver_id" validate:"required"`
	Type       string `json:"type" validate:"required,oneof=text image video audio file"`
	Content    string `json:"content,omitempty"`
	MediaRef   string `json:"media_ref,omitempty"`
}
