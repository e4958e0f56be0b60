package gateway

import (
	"context"
	"sync"

	"github.com/nivram710/snapline/backend/internal/events"
	"go.uber.org/zap"
)

// Session is the minimal interface the hub needs from a live connection:
// the ability to hand it an event without blocking.
type Session interface {
	Send(ev events.Event) error
}

// Hub tracks live sessions per user so the server can push events to all
// currently-connected endpoints for a user. Delivery is best-effort: events
// for users without a session are dropped, because the durable state change
// already happened upstream and the client catches up on its next fetch.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uint]map[int64]Session
	nextID   int64

	presence *Presence
	log      *zap.SugaredLogger
}

// NewHub creates a hub. presence may be nil when Redis is not configured.
func NewHub(presence *Presence, log *zap.SugaredLogger) *Hub {
	return &Hub{
		sessions: make(map[uint]map[int64]Session),
		presence: presence,
		log:      log,
	}
}

// Register adds a session for the user and returns the connection id used to
// unregister it when the connection closes.
func (h *Hub) Register(ctx context.Context, userID uint, s Session) int64 {
	h.mu.Lock()
	if _, ok := h.sessions[userID]; !ok {
		h.sessions[userID] = make(map[int64]Session)
	}
	h.nextID++
	id := h.nextID
	h.sessions[userID][id] = s
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.SetOnline(ctx, userID); err != nil && h.log != nil {
			h.log.Warnw("presence set online failed", "user_id", userID, "error", err)
		}
	}
	return id
}

// Unregister removes a previously-registered session.
func (h *Hub) Unregister(ctx context.Context, userID uint, id int64) {
	h.mu.Lock()
	remaining := -1
	if conns, ok := h.sessions[userID]; ok {
		delete(conns, id)
		remaining = len(conns)
		if remaining == 0 {
			delete(h.sessions, userID)
		}
	}
	h.mu.Unlock()

	if remaining == 0 && h.presence != nil {
		if err := h.presence.SetOffline(ctx, userID); err != nil && h.log != nil {
			h.log.Warnw("presence set offline failed", "user_id", userID, "error", err)
		}
	}
}

// Connected reports whether the user has at least one live session here.
func (h *Hub) Connected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID]) > 0
}

// Publish implements events.Publisher. It sends the event to every live
// session of the target user and silently drops it when there is none.
// Sessions that fail to accept the event are unregistered so stale
// connections don't pile up.
func (h *Hub) Publish(ctx context.Context, ev events.Event) error {
	h.mu.RLock()
	conns := h.sessions[ev.TargetUserID]
	targets := make(map[int64]Session, len(conns))
	for id, s := range conns {
		targets[id] = s
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return nil
	}

	var failedIDs []int64
	for id, s := range targets {
		if err := s.Send(ev); err != nil {
			failedIDs = append(failedIDs, id)
			if h.log != nil {
				h.log.Debugw("session send failed", "user_id", ev.TargetUserID, "conn_id", id, "error", err)
			}
		}
	}
	for _, id := range failedIDs {
		h.Unregister(ctx, ev.TargetUserID, id)
	}
	return nil
}
