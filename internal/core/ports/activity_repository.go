package ports

import (
	"context"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// ActivityFilter narrows an activity log query.
type ActivityFilter struct {
	ActorID string // empty = all actors
	Limit   int
}

// ActivityRepository is an append-only store of audit entries.
type ActivityRepository interface {
	Insert(ctx context.Context, e *domain.ActivityLogEntry) error
	// List returns entries newest first.
	List(ctx context.Context, filter ActivityFilter) ([]*domain.ActivityLogEntry, error)
}
