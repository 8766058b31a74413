package ports

import (
	"context"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// SubscriptionRepository persists local mirrors of gateway subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, s *domain.SubscriptionRecord) error
	FindByID(ctx context.Context, id string) (*domain.SubscriptionRecord, error)
	FindByGatewayID(ctx context.Context, gatewaySubscriptionID string) (*domain.SubscriptionRecord, error)
	ListByAccount(ctx context.Context, accountID string) ([]*domain.SubscriptionRecord, error)
	// ApplyState writes gateway-confirmed status, price and cancellation
	// fields unless the stored record is already terminal. Reports whether
	// the record changed.
	ApplyState(ctx context.Context, gatewaySubscriptionID string, st domain.SubscriptionState, at time.Time) (bool, error)
	// AdvancePeriod sets the billing window only when the stored window ends
	// no later than end.
	AdvancePeriod(ctx context.Context, gatewaySubscriptionID string, start, end, at time.Time) (bool, error)
}
