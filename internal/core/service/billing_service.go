package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

const (
	defaultCurrency     = "usd"
	defaultPaymentLimit = 50
	maxPaymentLimit     = 200
	metaAccountID       = "account_id"
)

var currencyPattern = regexp.MustCompile(`^[a-z]{3}$`)

// BillingService implements ports.BillingService.
type BillingService struct {
	gateway  ports.PaymentGateway
	accounts ports.AccountRepository
	payments ports.PaymentRepository
	now      Clock
	log      zerolog.Logger
}

// NewBillingService returns a BillingService. A nil gateway makes every
// gateway-backed call fail with domain.ErrGatewayDisabled.
func NewBillingService(
	gateway ports.PaymentGateway,
	accounts ports.AccountRepository,
	payments ports.PaymentRepository,
	now Clock,
	log zerolog.Logger,
) *BillingService {
	if now == nil {
		now = systemClock
	}
	return &BillingService{gateway: gateway, accounts: accounts, payments: payments, now: now, log: log}
}

// ResolveOrCreateCustomer returns the cached gateway customer id, or finds
// one by email, or creates one. The id is cached on the account. Two racing
// callers may both create a customer; the last write wins the cache.
func (s *BillingService) ResolveOrCreateCustomer(ctx context.Context, account *domain.Account) (string, error) {
	if account.GatewayCustomerID != "" {
		return account.GatewayCustomerID, nil
	}
	if s.gateway == nil {
		return "", domain.ErrGatewayDisabled
	}

	customerID, err := s.gateway.FindCustomerByEmail(ctx, account.Email)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, account)
		if err != nil {
			return "", err
		}
		s.log.Info().Str("account_id", account.ID).Str("customer_id", customerID).Msg("gateway customer created")
	}

	account.GatewayCustomerID = customerID
	if err := s.accounts.SetGatewayCustomer(ctx, account.ID, customerID, s.now()); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to cache gateway customer id")
	}
	return customerID, nil
}

// CreatePaymentIntent validates the request, creates the intent at the
// gateway and stores a pending PaymentRecord for it.
func (s *BillingService) CreatePaymentIntent(ctx context.Context, account *domain.Account, in ports.CreatePaymentInput) (*ports.PaymentIntentResult, error) {
	if in.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be a positive amount in minor units")
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if !currencyPattern.MatchString(currency) {
		return nil, domain.NewValidationError("currency", "must be a three-letter ISO code")
	}
	if s.gateway == nil {
		return nil, domain.ErrGatewayDisabled
	}

	customerID, err := s.ResolveOrCreateCustomer(ctx, account)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(in.Metadata)+1)
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	metadata[metaAccountID] = account.ID

	res, err := s.gateway.CreatePaymentIntent(ctx, ports.PaymentIntentParams{
		Amount:      in.Amount,
		Currency:    currency,
		CustomerID:  customerID,
		Description: in.Description,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &domain.PaymentRecord{
		ID:                uuid.NewString(),
		AccountID:         account.ID,
		GatewayIntentID:   res.IntentID,
		GatewayCustomerID: customerID,
		Amount:            in.Amount,
		Currency:          currency,
		Status:            domain.PaymentPending,
		Description:       in.Description,
		Metadata:          metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	// A webhook may have recorded the intent first; its record stands.
	if err := s.payments.Create(ctx, rec); err != nil && !errors.Is(err, domain.ErrDuplicatePayment) {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("intent_id", res.IntentID).
		Int64("amount", in.Amount).
		Str("currency", currency).
		Msg("payment intent created")
	return res, nil
}

// ListPayments returns the account's payments, newest first.
func (s *BillingService) ListPayments(ctx context.Context, accountID string, limit int) ([]*domain.PaymentRecord, error) {
	if limit <= 0 {
		limit = defaultPaymentLimit
	}
	if limit > maxPaymentLimit {
		limit = maxPaymentLimit
	}
	return s.payments.ListByAccount(ctx, accountID, limit)
}
