package service

import (
	"context"
	"errors"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// maxAccountWriteAttempts bounds how often a read-modify-write is replayed
// after losing a version race.
const maxAccountWriteAttempts = 3

// updateAccount loads the account, applies fn and writes it back under the
// repository's version check. When another writer got there first the
// account is reloaded and fn runs again on the fresh copy, so fn must only
// depend on the account it is handed.
func updateAccount(
	ctx context.Context,
	accounts ports.AccountRepository,
	id string,
	now Clock,
	fn func(*domain.Account) error,
) (*domain.Account, error) {
	for attempt := 1; ; attempt++ {
		a, err := accounts.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(a); err != nil {
			return nil, err
		}
		a.UpdatedAt = now()
		err = accounts.Update(ctx, a)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, domain.ErrStaleAccount) || attempt == maxAccountWriteAttempts {
			return nil, err
		}
	}
}
