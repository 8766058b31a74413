package ports

import (
	"context"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// ListAccountsFilter carries the query parameters for the admin user list.
type ListAccountsFilter struct {
	Role   domain.Role // optional
	Search string      // optional: partial, case-insensitive match on email
	Page   int         // 1-based
	Limit  int
}

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	// Create inserts a new account. Returns domain.ErrEmailTaken when the
	// lower-cased email is already registered.
	Create(ctx context.Context, a *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Update replaces the stored account when its version still equals
	// a.Version, then bumps a.Version. A concurrent write in between returns
	// domain.ErrStaleAccount.
	Update(ctx context.Context, a *domain.Account) error
	// TouchLastLogin stamps the login time, but only while the account is
	// active and its password hash is still a.PasswordHash. Otherwise it
	// returns domain.ErrStaleAccount. On success a is refreshed.
	TouchLastLogin(ctx context.Context, a *domain.Account, at time.Time) error
	// SetGatewayCustomer caches the gateway customer id without touching
	// any other field.
	SetGatewayCustomer(ctx context.Context, id, customerID string, at time.Time) error
	Delete(ctx context.Context, id string) error
	// List returns a page of accounts, newest first, and the total count.
	List(ctx context.Context, filter ListAccountsFilter) ([]*domain.Account, int64, error)
}
