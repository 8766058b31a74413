package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

const metaPackageLabel = "package_label"

// CustomerResolver maps an account to its gateway customer.
type CustomerResolver interface {
	ResolveOrCreateCustomer(ctx context.Context, account *domain.Account) (string, error)
}

// SubscriptionService implements ports.SubscriptionService. Local records
// change only after the gateway has confirmed the change.
type SubscriptionService struct {
	gateway   ports.PaymentGateway
	customers CustomerResolver
	subs      ports.SubscriptionRepository
	now       Clock
	log       zerolog.Logger
}

// NewSubscriptionService returns a SubscriptionService.
func NewSubscriptionService(
	gateway ports.PaymentGateway,
	customers CustomerResolver,
	subs ports.SubscriptionRepository,
	now Clock,
	log zerolog.Logger,
) *SubscriptionService {
	if now == nil {
		now = systemClock
	}
	return &SubscriptionService{gateway: gateway, customers: customers, subs: subs, now: now, log: log}
}

// Create starts a subscription in the gateway's default-incomplete mode and
// persists it in the status the gateway reports.
func (s *SubscriptionService) Create(ctx context.Context, account *domain.Account, priceID, packageLabel string) (*ports.SubscriptionResult, error) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return nil, domain.NewValidationError("price_id", "is required")
	}
	packageLabel = strings.TrimSpace(packageLabel)
	if packageLabel == "" {
		packageLabel = priceID
	}
	if s.gateway == nil {
		return nil, domain.ErrGatewayDisabled
	}

	customerID, err := s.customers.ResolveOrCreateCustomer(ctx, account)
	if err != nil {
		return nil, err
	}
	gs, err := s.gateway.CreateSubscription(ctx, customerID, priceID, map[string]string{
		metaAccountID:    account.ID,
		metaPackageLabel: packageLabel,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &domain.SubscriptionRecord{
		ID:                    uuid.NewString(),
		AccountID:             account.ID,
		GatewaySubscriptionID: gs.ID,
		GatewayCustomerID:     customerID,
		GatewayPriceID:        priceID,
		PackageLabel:          packageLabel,
		Status:                domain.SubscriptionIncomplete,
		CurrentPeriodStart:    gs.State.CurrentPeriodStart,
		CurrentPeriodEnd:      gs.State.CurrentPeriodEnd,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	rec.ApplyState(gs.State)
	if err := s.subs.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record subscription: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("subscription_id", gs.ID).
		Str("status", string(rec.Status)).
		Msg("subscription created")
	return &ports.SubscriptionResult{
		SubscriptionID:        rec.ID,
		GatewaySubscriptionID: gs.ID,
		ClientToken:           gs.ClientToken,
		Status:                rec.Status,
	}, nil
}

// ChangePlan moves the subscription to newPriceID with proration. The local
// record is untouched when the gateway call fails or times out.
func (s *SubscriptionService) ChangePlan(ctx context.Context, account *domain.Account, subscriptionID, newPriceID string) (*domain.SubscriptionRecord, error) {
	newPriceID = strings.TrimSpace(newPriceID)
	if newPriceID == "" {
		return nil, domain.NewValidationError("new_price_id", "is required")
	}
	rec, err := s.owned(ctx, account, subscriptionID)
	if err != nil {
		return nil, err
	}
	if rec.GatewayPriceID == newPriceID {
		return nil, domain.ErrPlanUnchanged
	}
	if s.gateway == nil {
		return nil, domain.ErrGatewayDisabled
	}

	gs, err := s.gateway.ChangePlan(ctx, rec.GatewaySubscriptionID, newPriceID)
	if err != nil {
		return nil, err
	}
	if gs.State.PriceID == "" {
		gs.State.PriceID = newPriceID
	}
	return s.applyConfirmed(ctx, rec, gs, "plan changed")
}

// Cancel ends the subscription now or at the end of the current period. The
// resulting flags are copied from the gateway's response.
func (s *SubscriptionService) Cancel(ctx context.Context, account *domain.Account, subscriptionID string, atPeriodEnd bool) (*domain.SubscriptionRecord, error) {
	rec, err := s.owned(ctx, account, subscriptionID)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, domain.ErrGatewayDisabled
	}

	gs, err := s.gateway.Cancel(ctx, rec.GatewaySubscriptionID, atPeriodEnd)
	if err != nil {
		return nil, err
	}
	return s.applyConfirmed(ctx, rec, gs, "subscription canceled")
}

// List returns the account's subscriptions, newest first.
func (s *SubscriptionService) List(ctx context.Context, account *domain.Account) ([]*domain.SubscriptionRecord, error) {
	return s.subs.ListByAccount(ctx, account.ID)
}

func (s *SubscriptionService) owned(ctx context.Context, account *domain.Account, id string) (*domain.SubscriptionRecord, error) {
	rec, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.AccountID != account.ID {
		return nil, domain.ErrForbidden
	}
	if rec.Status.Terminal() {
		return nil, domain.ErrSubscriptionTerminal
	}
	return rec, nil
}

func (s *SubscriptionService) applyConfirmed(ctx context.Context, rec *domain.SubscriptionRecord, gs *ports.GatewaySubscription, msg string) (*domain.SubscriptionRecord, error) {
	now := s.now()
	if _, err := s.subs.ApplyState(ctx, rec.GatewaySubscriptionID, gs.State, now); err != nil {
		return nil, fmt.Errorf("apply subscription state: %w", err)
	}
	if gs.State.CurrentPeriodStart != nil && gs.State.CurrentPeriodEnd != nil {
		if _, err := s.subs.AdvancePeriod(ctx, rec.GatewaySubscriptionID, *gs.State.CurrentPeriodStart, *gs.State.CurrentPeriodEnd, now); err != nil {
			return nil, fmt.Errorf("apply subscription period: %w", err)
		}
	}

	updated, err := s.subs.FindByID(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("account_id", rec.AccountID).
		Str("subscription_id", rec.GatewaySubscriptionID).
		Str("status", string(updated.Status)).
		Msg(msg)
	return updated, nil
}
