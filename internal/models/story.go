package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Story represents a user's ephemeral story stored in MongoDB. View records
// are embedded with set semantics on viewer_id; a story stays queryable only
// while active and before expires_at, and the sweep deactivates, never deletes.
type Story struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    uint               `json:"user_id" bson:"user_id"`
	Items     []StoryItem        `json:"items" bson:"items"`
	Views     []StoryView        `json:"-" bson:"views"`
	ExpiresAt time.Time          `json:"expires_at" bson:"expires_at"`
	IsActive  bool               `json:"is_active" bson:"is_active"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// StoryItem represents a single content frame in a story
type StoryItem struct {
	ID        string    `json:"id" bson:"id"`
	Type      string    `json:"type" bson:"type"` // "image" or "video"
	URL       string    `json:"url" bson:"url"`
	Caption   string    `json:"caption,omitempty" bson:"caption,omitempty"`
	Overlay   string    `json:"overlay,omitempty" bson:"overlay,omitempty"`
	Duration  int       `json:"duration" bson:"duration"` // seconds
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// StoryView records that a viewer has seen the story, one entry per viewer
type StoryView struct {
	ViewerID uint      `json:"viewer_id" bson:"viewer_id"`
	ViewedAt time.Time `json:"viewed_at" bson:"viewed_at"`
}

// Expired reports whether the story's TTL has elapsed at the given instant.
func (s *Story) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Visible reports whether the story may still be served.
func (s *Story) Visible(now time.Time) bool {
	return s.IsActive && !s.Expired(now)
}

// ViewedBy reports whether viewerID already has a view record.
func (s *Story) ViewedBy(viewerID uint) bool {
	for _, v := range s.Views {
		if v.ViewerID == viewerID {
			return true
		}
	}
	return false
}

// CreateStoryRequest defines the request body for creating a story
type CreateStoryRequest struct {
	MediaURL string `json:"media_url" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=image video"`
	Caption  string `json:"caption,omitempty"`
	Overlay  string `json:"overlay,omitempty"`
}
