package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// SubscriptionRepository is an in-memory ports.SubscriptionRepository.
type SubscriptionRepository struct {
	mu        sync.Mutex
	byID      map[string]*domain.SubscriptionRecord
	byGateway map[string]string
}

// NewSubscriptionRepository returns an empty SubscriptionRepository.
func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{
		byID:      make(map[string]*domain.SubscriptionRecord),
		byGateway: make(map[string]string),
	}
}

func (r *SubscriptionRepository) Create(_ context.Context, s *domain.SubscriptionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byGateway[s.GatewaySubscriptionID]; ok {
		return domain.ErrConflict
	}
	r.byID[s.ID] = cloneSubscription(s)
	r.byGateway[s.GatewaySubscriptionID] = s.ID
	return nil
}

func (r *SubscriptionRepository) FindByID(_ context.Context, id string) (*domain.SubscriptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return cloneSubscription(s), nil
}

func (r *SubscriptionRepository) FindByGatewayID(_ context.Context, gatewayID string) (*domain.SubscriptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.lookup(gatewayID)
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return cloneSubscription(s), nil
}

func (r *SubscriptionRepository) ListByAccount(_ context.Context, accountID string) ([]*domain.SubscriptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.SubscriptionRecord
	for _, s := range r.byID {
		if s.AccountID == accountID {
			out = append(out, cloneSubscription(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *SubscriptionRepository) ApplyState(_ context.Context, gatewayID string, st domain.SubscriptionState, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.lookup(gatewayID)
	if !ok {
		return false, domain.ErrSubscriptionNotFound
	}
	if s.Status.Terminal() {
		return false, nil
	}
	s.ApplyState(st)
	s.UpdatedAt = at
	return true, nil
}

func (r *SubscriptionRepository) AdvancePeriod(_ context.Context, gatewayID string, start, end, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.lookup(gatewayID)
	if !ok {
		return false, domain.ErrSubscriptionNotFound
	}
	if !s.AdvancePeriod(start, end) {
		return false, nil
	}
	s.UpdatedAt = at
	return true, nil
}

func (r *SubscriptionRepository) lookup(gatewayID string) (*domain.SubscriptionRecord, bool) {
	id, ok := r.byGateway[gatewayID]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

func cloneSubscription(s *domain.SubscriptionRecord) *domain.SubscriptionRecord {
	c := *s
	c.CurrentPeriodStart = cloneTime(s.CurrentPeriodStart)
	c.CurrentPeriodEnd = cloneTime(s.CurrentPeriodEnd)
	c.CanceledAt = cloneTime(s.CanceledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
