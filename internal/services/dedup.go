package services

import (
	"context"
	"time"

	"github.com/nimasrn/webhook-intake/pkg/redis"
)

const seenKeyPrefix = "seen:"

// DedupCache is a redis fast path for replayed message ids. It is an
// optimization only: markers are written after a row exists in the
// store, so a hit always implies a duplicate, and every miss or cache
// failure is resolved by the storage-engine uniqueness constraint.
type DedupCache struct {
	redis redis.RedisAdapter
	ttl   time.Duration
}

func NewDedupCache(redisAdapter redis.RedisAdapter, ttl time.Duration) *DedupCache {
	return &DedupCache{
		redis: redisAdapter,
		ttl:   ttl,
	}
}

// Seen reports whether the id has a live processed marker.
func (c *DedupCache) Seen(ctx context.Context, messageID string) (bool, error) {
	exists, err := c.redis.Exist(seenKeyPrefix + messageID)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Mark records that a row for the id exists in the store.
func (c *DedupCache) Mark(ctx context.Context, messageID string) error {
	return c.redis.Set(seenKeyPrefix+messageID, []byte("1"), c.ttl)
}
