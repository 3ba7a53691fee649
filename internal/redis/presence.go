package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// PresenceStatus mirrors a staff member's connection state so the
// support-team view can show who is online.
type PresenceStatus struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsOnline    bool      `json:"is_online"`
	LastSeen    time.Time `json:"last_seen"`
}

const (
	presenceKeyPrefix = "support:presence:"
	presenceOnlineSet = "support:presence:online"
	typingKeyPrefix   = "support:typing:"

	// Typing keys expire on their own so a crashed client's stale
	// "typing" signal cannot outlive the TTL.
	typingTTL = 5 * time.Second
)

// PresenceStore tracks staff presence and mirrors typing signals in
// Redis with a TTL. Neither is a source of truth for anything
// persisted.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceStore{client: client, ttl: ttl}
}

func (p *PresenceStore) SetOnline(ctx context.Context, userID, displayName string) error {
	status := PresenceStatus{
		UserID:      userID,
		DisplayName: displayName,
		IsOnline:    true,
		LastSeen:    time.Now(),
	}
	data, _ := json.Marshal(status)

	pipe := p.client.Pipeline()
	pipe.Set(ctx, presenceKeyPrefix+userID, data, p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *PresenceStore) SetOffline(ctx context.Context, userID string) error {
	status := PresenceStatus{
		UserID:   userID,
		IsOnline: false,
		LastSeen: time.Now(),
	}
	data, _ := json.Marshal(status)

	pipe := p.client.Pipeline()
	// Offline status is kept around longer for last-seen queries.
	pipe.Set(ctx, presenceKeyPrefix+userID, data, 24*time.Hour)
	pipe.SRem(ctx, presenceOnlineSet, userID)
	_, err := pipe.Exec(ctx)
	return err
}

// OnlineStaff returns the ids of staff currently marked online.
func (p *PresenceStore) OnlineStaff(ctx context.Context) ([]string, error) {
	return p.client.SMembers(ctx, presenceOnlineSet).Result()
}

// SetTyping mirrors the typing signal. The key auto-expires, which is
// the server-side backstop for the client's 2-second debounce.
func (p *PresenceStore) SetTyping(ctx context.Context, conversationID, actorID string, isTyping bool) error {
	key := typingKeyPrefix + conversationID + ":" + actorID
	if !isTyping {
		return p.client.Del(ctx, key).Err()
	}
	return p.client.Set(ctx, key, "1", typingTTL).Err()
}
