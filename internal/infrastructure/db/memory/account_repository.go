package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// AccountRepository is an in-memory ports.AccountRepository.
type AccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Account
	byEmail map[string]string
}

// NewAccountRepository returns an empty AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[string]*domain.Account),
		byEmail: make(map[string]string),
	}
}

func (r *AccountRepository) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(a.Email)
	if _, ok := r.byEmail[email]; ok {
		return domain.ErrEmailTaken
	}
	if a.Version == 0 {
		a.Version = 1
	}
	r.byID[a.ID] = cloneAccount(a)
	r.byEmail[email] = a.ID
	return nil
}

func (r *AccountRepository) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(r.byID[id]), nil
}

func (r *AccountRepository) Update(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[a.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if cur.Version != a.Version {
		return domain.ErrStaleAccount
	}
	oldEmail, newEmail := strings.ToLower(cur.Email), strings.ToLower(a.Email)
	if oldEmail != newEmail {
		if _, taken := r.byEmail[newEmail]; taken {
			return domain.ErrEmailTaken
		}
		delete(r.byEmail, oldEmail)
		r.byEmail[newEmail] = a.ID
	}
	a.Version++
	r.byID[a.ID] = cloneAccount(a)
	return nil
}

func (r *AccountRepository) TouchLastLogin(_ context.Context, a *domain.Account, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[a.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if !cur.Active || cur.PasswordHash != a.PasswordHash {
		return domain.ErrStaleAccount
	}
	cur.LastLoginAt = &at
	cur.Version++
	*a = *cloneAccount(cur)
	return nil
}

func (r *AccountRepository) SetGatewayCustomer(_ context.Context, id, customerID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	cur.GatewayCustomerID = customerID
	cur.UpdatedAt = at
	cur.Version++
	return nil
}

func (r *AccountRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.byEmail, strings.ToLower(a.Email))
	delete(r.byID, id)
	return nil
}

func (r *AccountRepository) List(_ context.Context, f ports.ListAccountsFilter) ([]*domain.Account, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(f.Search)
	matched := make([]*domain.Account, 0, len(r.byID))
	for _, a := range r.byID {
		if f.Role != "" && a.Role != f.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(a.Email), search) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page := pageOf(matched, f.Page, f.Limit)
	out := make([]*domain.Account, len(page))
	for i, a := range page {
		out[i] = cloneAccount(a)
	}
	return out, total, nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	if a.Avatar != nil {
		av := *a.Avatar
		c.Avatar = &av
	}
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

// pageOf slices items for a 1-based page. Non-positive limits return everything.
func pageOf[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
