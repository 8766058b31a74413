package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// dedupTTL covers the gateway's redelivery window; the durable ledger
// answers for anything older.
const dedupTTL = 72 * time.Hour

// DedupCache marks processed webhook events in Redis.
// Key format: webhook:processed:<event_id>
type DedupCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupCache creates a DedupCache wrapping the given Redis client.
func NewDedupCache(client *redis.Client) *DedupCache {
	return &DedupCache{client: client, ttl: dedupTTL}
}

// IsProcessed reports whether the event has already been applied.
func (d *DedupCache) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records that the event has been applied.
func (d *DedupCache) MarkProcessed(ctx context.Context, eventID string) error {
	if err := d.client.Set(ctx, d.key(eventID), "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	return nil
}

func (d *DedupCache) key(eventID string) string {
	return "webhook:processed:" + eventID
}
