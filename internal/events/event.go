package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types pushed to recipients.
const (
	TypeNewMessage   = "new_message"
	TypeNotification = "notification"
)

// Event is an outbound state-change notification emitted after the durable
// write has committed. The payload carries the entity's public representation
// only, never internal storage fields.
type Event struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	TargetUserID uint        `json:"target_user_id"`
	Payload      interface{} `json:"payload"`
	CreatedAt    time.Time   `json:"created_at"`
}

// New builds an event with a fresh id and timestamp.
func New(eventType string, targetUserID uint, payload interface{}) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TargetUserID: targetUserID,
		Payload:      payload,
		CreatedAt:    time.Now(),
	}
}

// Publisher forwards events toward recipients. Implementations must be
// non-blocking from the caller's perspective: a missing or slow recipient
// never stalls the write path.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes to every configured publisher best-effort. Failures are
// logged and swallowed; the durable state change already happened upstream.
type Fanout struct {
	Publishers []Publisher
	Log        *zap.SugaredLogger
}

// Publish never returns an error; per-publisher failures are logged only.
func (f *Fanout) Publish(ctx context.Context, ev Event) error {
	for _, p := range f.Publishers {
		if err := p.Publish(ctx, ev); err != nil && f.Log != nil {
			f.Log.Warnw("event publish failed", "event_id", ev.ID, "type", ev.Type, "error", err)
		}
	}
	return nil
}
