// Package stripe implements ports.PaymentGateway on top of stripe-go.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings for talking to Stripe.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// Timeout bounds every API call. Defaults to 10s.
	Timeout time.Duration
	// BaseURL overrides the API endpoint; used by tests.
	BaseURL string
}

// Gateway is the Stripe-backed payment gateway client.
type Gateway struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
	log           zerolog.Logger
}

var _ ports.PaymentGateway = (*Gateway)(nil)

// New builds a Gateway. Retries are left to callers: a timed-out mutation
// must surface as an error rather than be replayed behind their back.
func New(cfg Config, log zerolog.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	// GetBackendWithConfig fills in defaults on the config it is given, so
	// each backend gets its own copy.
	backendCfg := func() *stripe.BackendConfig {
		c := &stripe.BackendConfig{
			HTTPClient:        httpClient,
			LeveledLogger:     leveledLogger{log: log},
			MaxNetworkRetries: stripe.Int64(0),
			EnableTelemetry:   stripe.Bool(false),
		}
		if cfg.BaseURL != "" {
			c.URL = stripe.String(cfg.BaseURL)
		}
		return c
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg()),
	}

	return &Gateway{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		timeout:       timeout,
		log:           log,
	}
}

// FindCustomerByEmail returns the first customer registered with email, or "".
func (g *Gateway) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := g.api.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", g.fail(ctx, "find_customer", err)
	}
	return "", nil
}

// CreateCustomer registers the account with Stripe, tagging it with the
// local account id.
func (g *Gateway) CreateCustomer(ctx context.Context, account *domain.Account) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.CustomerParams{Email: stripe.String(account.Email)}
	if name := strings.TrimSpace(account.Profile.FirstName + " " + account.Profile.LastName); name != "" {
		params.Name = stripe.String(name)
	}
	params.Context = ctx
	params.AddMetadata("account_id", account.ID)

	c, err := g.api.Customers.New(params)
	if err != nil {
		return "", g.fail(ctx, "create_customer", err)
	}
	return c.ID, nil
}

// CreatePaymentIntent creates an intent with automatic payment methods so
// the client can pick any instrument enabled on the account.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, p ports.PaymentIntentParams) (*ports.PaymentIntentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, g.fail(ctx, "create_payment_intent", err)
	}
	return &ports.PaymentIntentResult{
		IntentID:    pi.ID,
		ClientToken: pi.ClientSecret,
		Status:      string(pi.Status),
	}, nil
}

// CreateSubscription starts a subscription that stays incomplete until the
// client confirms the first invoice's payment intent.
func (g *Gateway) CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*ports.GatewaySubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx

	s, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, g.fail(ctx, "create_subscription", err)
	}
	return toGatewaySubscription(s), nil
}

// ChangePlan swaps the price of the subscription's single item with prorations.
func (g *Gateway) ChangePlan(ctx context.Context, subscriptionID, newPriceID string) (*ports.GatewaySubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	current, err := g.api.Subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		return nil, g.fail(ctx, "change_plan", err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, &domain.GatewayError{Op: "change_plan", Err: errors.New("subscription has no items")}
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(current.Items.Data[0].ID),
			Price: stripe.String(newPriceID),
		}},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx

	s, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, g.fail(ctx, "change_plan", err)
	}
	return toGatewaySubscription(s), nil
}

// Cancel either flags the subscription to end with the current period or
// cancels it immediately.
func (g *Gateway) Cancel(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*ports.GatewaySubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		s   *stripe.Subscription
		err error
	)
	if atPeriodEnd {
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		params.Context = ctx
		s, err = g.api.Subscriptions.Update(subscriptionID, params)
	} else {
		params := &stripe.SubscriptionCancelParams{}
		params.Context = ctx
		s, err = g.api.Subscriptions.Cancel(subscriptionID, params)
	}
	if err != nil {
		return nil, g.fail(ctx, "cancel_subscription", err)
	}
	return toGatewaySubscription(s), nil
}

// fail wraps err in a domain.GatewayError, classifying timeouts and
// retryable responses.
func (g *Gateway) fail(ctx context.Context, op string, err error) error {
	ge := &domain.GatewayError{Op: op, Err: err}

	var netErr net.Error
	var stripeErr *stripe.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		ge.Timeout, ge.Retryable = true, true
	case errors.As(err, &netErr) && netErr.Timeout():
		ge.Timeout, ge.Retryable = true, true
	case errors.As(err, &stripeErr):
		ge.Retryable = stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.Type == stripe.ErrorTypeAPI
	default:
		ge.Retryable = true
	}

	g.log.Warn().Err(err).
		Str("op", op).
		Bool("timeout", ge.Timeout).
		Bool("retryable", ge.Retryable).
		Msg("stripe call failed")
	return ge
}

func toGatewaySubscription(s *stripe.Subscription) *ports.GatewaySubscription {
	gs := &ports.GatewaySubscription{
		ID:    s.ID,
		State: subscriptionState(s),
	}
	if s.Customer != nil {
		gs.CustomerID = s.Customer.ID
	}
	if s.LatestInvoice != nil && s.LatestInvoice.PaymentIntent != nil {
		gs.ClientToken = s.LatestInvoice.PaymentIntent.ClientSecret
	}
	return gs
}

func subscriptionState(s *stripe.Subscription) domain.SubscriptionState {
	st := domain.SubscriptionState{
		Status:             domain.SubscriptionStatus(s.Status),
		CurrentPeriodStart: unixPtr(s.CurrentPeriodStart),
		CurrentPeriodEnd:   unixPtr(s.CurrentPeriodEnd),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CanceledAt:         unixPtr(s.CanceledAt),
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		price := s.Items.Data[0].Price
		st.PriceID = price.ID
		st.Amount = price.UnitAmount
		st.Currency = string(price.Currency)
		if price.Recurring != nil {
			st.Interval = string(price.Recurring.Interval)
			st.IntervalCount = price.Recurring.IntervalCount
		}
	}
	return st
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// leveledLogger routes stripe-go's internal logging into zerolog.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}

func (l leveledLogger) Infof(format string, v ...interface{}) {
	l.log.Debug().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}

func (l leveledLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}

func (l leveledLogger) Errorf(format string, v ...interface{}) {
	l.log.Error().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}
