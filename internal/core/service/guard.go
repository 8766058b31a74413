package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// Guard is the ports.Authorizer used by the HTTP middleware.
type Guard struct {
	sessions *SessionManager
	accounts ports.AccountRepository
	activity ports.ActivityLogger
	log      zerolog.Logger
}

// NewGuard returns a Guard.
func NewGuard(sessions *SessionManager, accounts ports.AccountRepository, activity ports.ActivityLogger, log zerolog.Logger) *Guard {
	return &Guard{sessions: sessions, accounts: accounts, activity: activity, log: log}
}

// Authorize resolves token to an account and checks it against allowed.
// Unidentified callers are rejected without an audit entry; identified
// callers always leave exactly one entry, recorded before the action runs.
func (g *Guard) Authorize(
	ctx context.Context,
	token string,
	allowed []domain.Role,
	origin domain.Origin,
	action string,
) (*domain.Account, *domain.Session, error) {
	if token == "" {
		return nil, nil, domain.ErrUnauthenticated
	}

	sess, err := g.sessions.Resolve(ctx, token)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionExpired):
		return nil, nil, domain.ErrUnauthenticated
	case err != nil:
		return nil, nil, fmt.Errorf("authorize: %w", err)
	}

	account, err := g.accounts.FindByID(ctx, sess.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		if rerr := g.sessions.Revoke(ctx, token); rerr != nil {
			g.log.Warn().Err(rerr).Msg("failed to revoke orphaned session")
		}
		return nil, nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, nil, fmt.Errorf("authorize: %w", err)
	}

	if !account.Active {
		g.activity.Append(ctx, entryFor(account, action, domain.OutcomeDenied, origin))
		return nil, nil, domain.ErrAccountDisabled
	}
	if !roleAllowed(account.Role, allowed) {
		g.activity.Append(ctx, entryFor(account, action, domain.OutcomeForbidden, origin))
		g.log.Info().Str("account_id", account.ID).Str("action", action).Msg("forbidden")
		return nil, nil, domain.ErrForbidden
	}

	g.activity.Append(ctx, entryFor(account, action, domain.OutcomeAttempted, origin))
	return account, sess, nil
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
