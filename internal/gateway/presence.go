package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 5 * time.Minute

// Presence stores online/last-seen state in Redis so other instances can
// answer presence queries for users connected elsewhere.
type Presence struct {
	client *redis.Client
	prefix string
}

// PresenceInfo is the public presence representation.
type PresenceInfo struct {
	Status   string `json:"status"` // "online" or "offline"
	LastSeen int64  `json:"last_seen"`
}

func NewPresence(client *redis.Client, prefix string) *Presence {
	return &Presence{client: client, prefix: prefix}
}

func (p *Presence) key(userID uint) string {
	return fmt.Sprintf("%s:presence:%d", p.prefix, userID)
}

func (p *Presence) SetOnline(ctx context.Context, userID uint) error {
	return p.set(ctx, userID, "online", presenceTTL)
}

func (p *Presence) SetOffline(ctx context.Context, userID uint) error {
	return p.set(ctx, userID, "offline", 0)
}

func (p *Presence) set(ctx context.Context, userID uint, status string, ttl time.Duration) error {
	info := PresenceInfo{Status: status, LastSeen: time.Now().Unix()}
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.key(userID), b, ttl).Err()
}

// Get returns the stored presence; an absent key means offline.
func (p *Presence) Get(ctx context.Context, userID uint) (PresenceInfo, error) {
	b, err := p.client.Get(ctx, p.key(userID)).Bytes()
	if err == redis.Nil {
		return PresenceInfo{Status: "offline"}, nil
	}
	if err != nil {
		return PresenceInfo{}, err
	}
	var info PresenceInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return PresenceInfo{}, err
	}
	return info, nil
}
