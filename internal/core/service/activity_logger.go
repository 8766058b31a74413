package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 500
)

type activityLogger struct {
	repo ports.ActivityRepository
	now  Clock
	log  zerolog.Logger
}

// NewActivityLogger returns a ports.ActivityLogger.
func NewActivityLogger(repo ports.ActivityRepository, now Clock, log zerolog.Logger) ports.ActivityLogger {
	if now == nil {
		now = systemClock
	}
	return &activityLogger{repo: repo, now: now, log: log}
}

// Append stores e synchronously. Storage failures are logged, never returned:
// the audited action is not blocked by the audit trail.
func (l *activityLogger) Append(ctx context.Context, e *domain.ActivityLogEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now()
	}
	if err := l.repo.Insert(ctx, e); err != nil {
		l.log.Warn().Err(err).
			Str("actor_id", e.ActorID).
			Str("action", e.Action).
			Msg("failed to append activity log entry")
	}
}

// Query returns the newest entries, optionally for a single actor.
func (l *activityLogger) Query(ctx context.Context, actorID string, limit int) ([]*domain.ActivityLogEntry, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	entries, err := l.repo.List(ctx, ports.ActivityFilter{ActorID: actorID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	return entries, nil
}

func entryFor(actor *domain.Account, action, outcome string, origin domain.Origin) *domain.ActivityLogEntry {
	return &domain.ActivityLogEntry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    action,
		Detail:    map[string]any{"outcome": outcome},
		Origin:    origin,
	}
}
