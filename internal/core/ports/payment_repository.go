package ports

import (
	"context"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// PaymentRepository persists local mirrors of gateway payment intents.
type PaymentRepository interface {
	// Create returns domain.ErrDuplicatePayment when the gateway intent id
	// is already recorded.
	Create(ctx context.Context, p *domain.PaymentRecord) error
	FindByIntentID(ctx context.Context, intentID string) (*domain.PaymentRecord, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.PaymentRecord, error)
	// Transition sets the status to `to` only if the current status is one of
	// `from`. It reports whether a record was changed; a missing record
	// returns domain.ErrPaymentNotFound.
	Transition(
		ctx context.Context,
		intentID string,
		from []domain.PaymentStatus,
		to domain.PaymentStatus,
		outcome domain.PaymentOutcome,
		at time.Time,
	) (bool, error)
}
