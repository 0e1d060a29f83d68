package notifications

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by UnreadCache.Get when no cached count
// exists for the user.
var ErrCacheMiss = errors.New("notifications: unread count not cached")

// UnreadCache keeps per-user unread badge counts in Redis so the badge
// endpoint doesn't hit PostgreSQL on every poll. All methods are safe on
// a nil receiver, which disables caching.
type UnreadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUnreadCache wraps a Redis client. Returns nil when client is nil so
// the caller can skip wiring.
func NewUnreadCache(client *redis.Client, ttl time.Duration) *UnreadCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UnreadCache{client: client, ttl: ttl}
}

func unreadKey(userID string) string {
	return "notifications:unread:" + userID
}

// Get returns the cached unread count for a user.
func (c *UnreadCache) Get(ctx context.Context, userID string) (int, error) {
	if c == nil {
		return 0, ErrCacheMiss
	}
	raw, err := c.client.Get(ctx, unreadKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, err
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrCacheMiss
	}
	return count, nil
}

// Set stores the unread count for a user.
func (c *UnreadCache) Set(ctx context.Context, userID string, count int) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, unreadKey(userID), strconv.Itoa(count), c.ttl).Err()
}

// Invalidate drops the cached count after any mutation that could change
// it. Errors are returned so callers can log them, but a stale entry only
// lives until the TTL anyway.
func (c *UnreadCache) Invalidate(ctx context.Context, userID string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, unreadKey(userID)).Err()
}
