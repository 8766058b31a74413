package memory

import (
	"context"
	"sync"
)

// DedupCache is an in-process ports.DedupCache used when Redis is disabled.
// Entries never expire; the durable ledger remains the source of truth.
type DedupCache struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewDedupCache returns an empty DedupCache.
func NewDedupCache() *DedupCache {
	return &DedupCache{seen: make(map[string]struct{})}
}

func (d *DedupCache) IsProcessed(_ context.Context, eventID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.seen[eventID]
	return ok, nil
}

func (d *DedupCache) MarkProcessed(_ context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[eventID] = struct{}{}
	return nil
}
