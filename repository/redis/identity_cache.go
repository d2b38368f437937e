package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/shoplake/reconciler/repository"
)

type identityCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewIdentityCache creates a Redis-backed identity dedup cache. Entries are
// marked only after the warehouse commit, so a stale or flushed cache can
// produce extra no-op writes but never duplicates.
func NewIdentityCache(client *redislib.Client, ttl time.Duration) repository.IdentityCache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &identityCache{
		client: client,
		prefix: "event:",
		ttl:    ttl,
	}
}

func (c *identityCache) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	n, err := c.client.Exists(ctx, c.key(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *identityCache) MarkSeen(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	return c.client.Set(ctx, c.key(eventID), 1, c.ttl).Err()
}

func (c *identityCache) key(eventID string) string {
	return fmt.Sprintf("%s%s", c.prefix, eventID)
}
