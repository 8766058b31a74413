package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// PaymentRepository is an in-memory ports.PaymentRepository keyed by
// gateway intent id.
type PaymentRepository struct {
	mu       sync.Mutex
	byIntent map[string]*domain.PaymentRecord
}

// NewPaymentRepository returns an empty PaymentRepository.
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{byIntent: make(map[string]*domain.PaymentRecord)}
}

func (r *PaymentRepository) Create(_ context.Context, p *domain.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byIntent[p.GatewayIntentID]; ok {
		return domain.ErrDuplicatePayment
	}
	r.byIntent[p.GatewayIntentID] = clonePayment(p)
	return nil
}

func (r *PaymentRepository) FindByIntentID(_ context.Context, intentID string) (*domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byIntent[intentID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (r *PaymentRepository) ListByAccount(_ context.Context, accountID string, limit int) ([]*domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.PaymentRecord
	for _, p := range r.byIntent {
		if p.AccountID == accountID {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PaymentRepository) Transition(
	_ context.Context,
	intentID string,
	from []domain.PaymentStatus,
	to domain.PaymentStatus,
	outcome domain.PaymentOutcome,
	at time.Time,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byIntent[intentID]
	if !ok {
		return false, domain.ErrPaymentNotFound
	}
	matched := false
	for _, s := range from {
		if p.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	p.Status = to
	if outcome.PaymentMethod != "" {
		p.PaymentMethod = outcome.PaymentMethod
	}
	if outcome.ReceiptURL != "" {
		p.ReceiptURL = outcome.ReceiptURL
	}
	p.FailureReason = outcome.FailureReason
	p.UpdatedAt = at
	return true, nil
}

func clonePayment(p *domain.PaymentRecord) *domain.PaymentRecord {
	c := *p
	if p.Metadata != nil {
		c.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
