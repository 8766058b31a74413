package ports

import (
	"context"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// PaymentIntentParams describes a one-off charge.
type PaymentIntentParams struct {
	Amount      int64 // minor units
	Currency    string
	CustomerID  string // optional
	Description string
	Metadata    map[string]string
}

// PaymentIntentResult is what the gateway returns for a new intent.
type PaymentIntentResult struct {
	IntentID    string
	ClientToken string
	Status      string
}

// GatewaySubscription is the gateway's view of a subscription after a call.
type GatewaySubscription struct {
	ID          string
	CustomerID  string
	ClientToken string // client secret of the first invoice's intent, if any
	State       domain.SubscriptionState
}

// PaymentGateway is the outbound port to the third-party payment processor.
// Every method returns *domain.GatewayError on failure.
type PaymentGateway interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	CreateCustomer(ctx context.Context, account *domain.Account) (string, error)
	CreatePaymentIntent(ctx context.Context, p PaymentIntentParams) (*PaymentIntentResult, error)
	CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*GatewaySubscription, error)
	ChangePlan(ctx context.Context, subscriptionID, newPriceID string) (*GatewaySubscription, error)
	Cancel(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*GatewaySubscription, error)
	// ParseWebhook verifies the signature header and decodes the event.
	// Verification failures return domain.ErrSignature.
	ParseWebhook(payload []byte, signatureHeader string) (*domain.GatewayEvent, error)
}
