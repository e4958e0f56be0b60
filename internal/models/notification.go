package models

import "time"

// Notification types produced by the system. A notification always references
// at most one subject entity, via TargetID/TargetType.
const (
	NotificationTypeLike      = "like"
	NotificationTypeComment   = "comment"
	NotificationTypeFollow    = "follow"
	NotificationTypeMention   = "mention"
	NotificationTypeStoryView = "story_view"
	NotificationTypeDuet      = "duet"
	NotificationTypeMessage   = "message"
)

// Notification represents a user notification (PostgreSQL).
// Fingerprint is the dedup key: type + actor + recipient + target + time
// bucket, unique-indexed so a repeat within the dedup window collapses into
// the existing row on insert instead of a range scan.
type Notification struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Type        string     `json:"type" gorm:"size:30;index"`
	ActorID     uint       `json:"actor_id" gorm:"index"`
	RecipientID uint       `json:"recipient_id" gorm:"index"`
	TargetID    string     `json:"target_id"`                  // post ID, story ID, message ID, etc.
	TargetType  string     `json:"target_type" gorm:"size:20"` // post, story, comment, duet, message, user
	Fingerprint string     `json:"-" gorm:"size:160;uniqueIndex"`
	Message     string     `json:"message"`
	IsRead      bool       `json:"is_read" gorm:"default:false;index"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
}

// CreateNotificationRequest defines the request body for producing a notification
type CreateNotificationRequest struct {
	RecipientID uint   `json:"recipient_id" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=like comment follow mention story_view duet message"`
	TargetID    string `json:"target_id,omitempty"`
	TargetType  string `json:"target_type,omitempty" validate:"omitempty,oneof=post story comment duet message user"`
	Message     string `json:"message" validate:"required"`
}
