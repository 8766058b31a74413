package memory

import (
	"context"
	"sync"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// WebhookEventRepository is an in-memory ports.WebhookEventRepository.
type WebhookEventRepository struct {
	mu     sync.Mutex
	events map[string]*domain.WebhookEventRecord
}

// NewWebhookEventRepository returns an empty ledger.
func NewWebhookEventRepository() *WebhookEventRepository {
	return &WebhookEventRepository{events: make(map[string]*domain.WebhookEventRecord)}
}

func (r *WebhookEventRepository) Record(_ context.Context, rec *domain.WebhookEventRecord) (*domain.WebhookEventRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.events[rec.EventID]; ok {
		cur.Attempts++
		return cloneEvent(cur), false, nil
	}
	c := cloneEvent(rec)
	if c.Attempts == 0 {
		c.Attempts = 1
	}
	r.events[rec.EventID] = c
	return cloneEvent(c), true, nil
}

func (r *WebhookEventRepository) MarkProcessed(_ context.Context, eventID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	cur.ProcessedAt = &at
	cur.LastError = ""
	return nil
}

func (r *WebhookEventRepository) MarkFailed(_ context.Context, eventID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	cur.LastError = reason
	return nil
}

// Get returns a copy of the stored record, or nil.
func (r *WebhookEventRepository) Get(eventID string) *domain.WebhookEventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.events[eventID]; ok {
		return cloneEvent(cur)
	}
	return nil
}

func cloneEvent(e *domain.WebhookEventRecord) *domain.WebhookEventRecord {
	c := *e
	c.ProcessedAt = cloneTime(e.ProcessedAt)
	return &c
}
