package ports

import (
	"context"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// SessionRepository stores opaque session tokens.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	Find(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteByAccount removes every session of the account except keepID
	// (pass "" to remove all) and reports how many were removed.
	DeleteByAccount(ctx context.Context, accountID, keepID string) (int64, error)
}
