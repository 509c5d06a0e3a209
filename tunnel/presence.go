package tunnel

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// presenceKeyPrefix namespaces agent presence keys in Redis.
const presenceKeyPrefix = "herald:agent:"

// defaultPresenceTTL is a little over two ping periods, so one dropped
// refresh does not flap the presence flag.
const defaultPresenceTTL = 75 * time.Second

// PresenceStore tracks which agents are connected, backed by Redis TTL keys
// refreshed by each session's ping loop. It serves the admin plane; the
// in-process Registry remains authoritative for delivery routing.
type PresenceStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPresenceStore creates a presence store. A non-positive ttl falls back
// to the default.
func NewPresenceStore(client *redis.Client, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = defaultPresenceTTL
	}
	return &PresenceStore{client: client, ttl: ttl}
}

// MarkOnline flags an agent as connected.
func (p *PresenceStore) MarkOnline(ctx context.Context, subscriberID string) error {
	if err := p.client.Set(ctx, presenceKey(subscriberID), time.Now().UTC().Format(time.RFC3339), p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark agent online: %w", err)
	}
	return nil
}

// Refresh extends the presence TTL; called on each ping tick.
func (p *PresenceStore) Refresh(ctx context.Context, subscriberID string) error {
	if err := p.client.Expire(ctx, presenceKey(subscriberID), p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh agent presence: %w", err)
	}
	return nil
}

// MarkOffline clears an agent's presence on session teardown.
func (p *PresenceStore) MarkOffline(ctx context.Context, subscriberID string) error {
	if err := p.client.Del(ctx, presenceKey(subscriberID)).Err(); err != nil {
		return fmt.Errorf("failed to mark agent offline: %w", err)
	}
	return nil
}

// Online reports whether an agent currently holds a presence key.
func (p *PresenceStore) Online(ctx context.Context, subscriberID string) (bool, error) {
	n, err := p.client.Exists(ctx, presenceKey(subscriberID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check agent presence: %w", err)
	}
	return n > 0, nil
}

func presenceKey(subscriberID string) string {
	return presenceKeyPrefix + subscriberID
}
