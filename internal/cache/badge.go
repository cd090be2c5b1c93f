package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// BadgeCachePrefix is the key prefix for per-recipient unread counters
	BadgeCachePrefix = "badge:owner:"

	// BadgeCacheTTL bounds staleness if an invalidation is ever missed
	BadgeCacheTTL = 24 * time.Hour
)

// BadgeCache caches the per-recipient unread ledger count used for the app
// icon badge. The ledger in Postgres stays the source of truth; a miss is
// repopulated from it by the service layer.
type BadgeCache interface {
	// Get returns the cached unread count. found=false on a cache miss.
	Get(ctx context.Context, ownerID int64) (count int, found bool, err error)

	// Set stores the unread count, refreshing the TTL.
	Set(ctx context.Context, ownerID int64, count int) error

	// Increment bumps an existing counter after a ledger append. A missing
	// key is left missing so the next Get repopulates from the ledger.
	Increment(ctx context.Context, ownerID int64) error

	// Invalidate drops the counter (after mark-read).
	Invalidate(ctx context.Context, ownerID int64) error
}

// RedisBadgeCache implements BadgeCache on a plain Redis string counter.
type RedisBadgeCache struct {
	client *redis.Client
}

// NewBadgeCache creates a BadgeCache backed by Redis.
func NewBadgeCache(client *redis.Client) BadgeCache {
	return &RedisBadgeCache{client: client}
}

func badgeKey(ownerID int64) string {
	return fmt.Sprintf("%s%d", BadgeCachePrefix, ownerID)
}

func (c *RedisBadgeCache) Get(ctx context.Context, ownerID int64) (int, bool, error) {
	count, err := c.client.Get(ctx, badgeKey(ownerID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		log.Printf("[BadgeCache] Get FAILED: owner=%d err=%v", ownerID, err)
		return 0, false, fmt.Errorf("get badge count: %w", err)
	}
	return count, true, nil
}

func (c *RedisBadgeCache) Set(ctx context.Context, ownerID int64, count int) error {
	err := c.client.Set(ctx, badgeKey(ownerID), count, BadgeCacheTTL).Err()
	if err != nil {
		log.Printf("[BadgeCache] Set FAILED: owner=%d err=%v", ownerID, err)
		return fmt.Errorf("set badge count: %w", err)
	}
	return nil
}

// Increment bumps the counter only when it already exists. INCR on a missing
// key would seed it at 1 regardless of the real unread total, so a cold key
// is left for the read path to repopulate. The exists/incr pair is not
// atomic; a concurrent invalidation just forces one extra ledger count.
func (c *RedisBadgeCache) Increment(ctx context.Context, ownerID int64) error {
	key := badgeKey(ownerID)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		log.Printf("[BadgeCache] Increment FAILED: owner=%d err=%v", ownerID, err)
		return fmt.Errorf("check badge key: %w", err)
	}
	if exists == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, BadgeCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[BadgeCache] Increment FAILED: owner=%d err=%v", ownerID, err)
		return fmt.Errorf("increment badge count: %w", err)
	}
	return nil
}

func (c *RedisBadgeCache) Invalidate(ctx context.Context, ownerID int64) error {
	if err := c.client.Del(ctx, badgeKey(ownerID)).Err(); err != nil {
		log.Printf("[BadgeCache] Invalidate FAILED: owner=%d err=%v", ownerID, err)
		return fmt.Errorf("invalidate badge count: %w", err)
	}
	return nil
}
