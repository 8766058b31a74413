package memory

import (
	"context"
	"sync"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// ActivityRepository is an in-memory, append-only ports.ActivityRepository.
type ActivityRepository struct {
	mu      sync.RWMutex
	entries []domain.ActivityLogEntry
}

// NewActivityRepository returns an empty ActivityRepository.
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

func (r *ActivityRepository) Insert(_ context.Context, e *domain.ActivityLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, cloneEntry(e))
	return nil
}

// List walks the log backwards so the newest entry comes first.
func (r *ActivityRepository) List(_ context.Context, f ports.ActivityFilter) ([]*domain.ActivityLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.ActivityLogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		c := cloneEntry(&e)
		out = append(out, &c)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func cloneEntry(e *domain.ActivityLogEntry) domain.ActivityLogEntry {
	c := *e
	if e.Detail != nil {
		c.Detail = make(map[string]any, len(e.Detail))
		for k, v := range e.Detail {
			c.Detail[k] = v
		}
	}
	return c
}
