package ports

import (
	"context"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// CreatePaymentInput is the client's request for a one-off charge.
type CreatePaymentInput struct {
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// BillingService covers one-off payments.
type BillingService interface {
	// ResolveOrCreateCustomer returns the gateway customer id for the
	// account, creating the customer on first use.
	ResolveOrCreateCustomer(ctx context.Context, account *domain.Account) (string, error)
	CreatePaymentIntent(ctx context.Context, account *domain.Account, in CreatePaymentInput) (*PaymentIntentResult, error)
	ListPayments(ctx context.Context, accountID string, limit int) ([]*domain.PaymentRecord, error)
}

// SubscriptionResult is returned when a subscription is started.
type SubscriptionResult struct {
	SubscriptionID        string
	GatewaySubscriptionID string
	ClientToken           string
	Status                domain.SubscriptionStatus
}

// SubscriptionService manages recurring plans on behalf of their owner.
type SubscriptionService interface {
	Create(ctx context.Context, account *domain.Account, priceID, packageLabel string) (*SubscriptionResult, error)
	ChangePlan(ctx context.Context, account *domain.Account, subscriptionID, newPriceID string) (*domain.SubscriptionRecord, error)
	Cancel(ctx context.Context, account *domain.Account, subscriptionID string, atPeriodEnd bool) (*domain.SubscriptionRecord, error)
	List(ctx context.Context, account *domain.Account) ([]*domain.SubscriptionRecord, error)
}

// WebhookService receives gateway notifications.
type WebhookService interface {
	// Receive verifies and records the delivery. A nil error means the
	// delivery can be acknowledged.
	Receive(ctx context.Context, payload []byte, signatureHeader string) error
	// Apply runs the state machine for a verified event.
	Apply(ctx context.Context, ev *domain.GatewayEvent) error
}
