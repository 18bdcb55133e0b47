package webhook

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// EventCache remembers processed webhook event ids so redelivered
// events are acknowledged without reprocessing. A nil cache disables
// dedupe; reconciliation is idempotent, so this is an optimization,
// not a correctness requirement.
type EventCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewEventCache connects to redis and verifies the connection. An
// empty URL returns a nil cache.
func NewEventCache(redisURL string, ttl time.Duration) (*EventCache, error) {
	if redisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &EventCache{redis: client, ttl: ttl}, nil
}

// FirstDelivery marks the event id seen and reports whether this is
// the first delivery.
func (c *EventCache) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	if c == nil {
		return true, nil
	}
	return c.redis.SetNX(ctx, "wh:evt:"+eventID, 1, c.ttl).Result()
}

// Forget drops a remembered event id. Called when processing fails
// after the id was marked, so the sender's retry is not swallowed as
// a duplicate.
func (c *EventCache) Forget(ctx context.Context, eventID string) error {
	if c == nil {
		return nil
	}
	return c.redis.Del(ctx, "wh:evt:"+eventID).Err()
}

func (c *EventCache) Close() error {
	if c == nil {
		return nil
	}
	return c.redis.Close()
}
