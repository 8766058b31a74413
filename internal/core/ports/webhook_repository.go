package ports

import (
	"context"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// WebhookEventRepository is the durable ledger of received gateway events.
type WebhookEventRepository interface {
	// Record inserts rec if its event id is new, otherwise increments the
	// attempt counter of the stored record. It returns the stored record and
	// whether it was created by this call.
	Record(ctx context.Context, rec *domain.WebhookEventRecord) (*domain.WebhookEventRecord, bool, error)
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
	MarkFailed(ctx context.Context, eventID string, reason string) error
}
