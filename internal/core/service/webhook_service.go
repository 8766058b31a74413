package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// WebhookService verifies, records and applies gateway events.
type WebhookService struct {
	gateway    ports.PaymentGateway
	events     ports.WebhookEventRepository
	payments   ports.PaymentRepository
	subs       ports.SubscriptionRepository
	dedup      ports.DedupCache
	dispatcher ports.Dispatcher
	now        Clock
	log        zerolog.Logger
}

// WebhookDeps groups the collaborators of a WebhookService. Dedup and
// Dispatcher are optional: without a dispatcher events are applied inline.
type WebhookDeps struct {
	Gateway       ports.PaymentGateway
	Events        ports.WebhookEventRepository
	Payments      ports.PaymentRepository
	Subscriptions ports.SubscriptionRepository
	Dedup         ports.DedupCache
	Dispatcher    ports.Dispatcher
	Clock         Clock
}

// NewWebhookService returns a WebhookService.
func NewWebhookService(deps WebhookDeps, log zerolog.Logger) *WebhookService {
	now := deps.Clock
	if now == nil {
		now = systemClock
	}
	return &WebhookService{
		gateway:    deps.Gateway,
		events:     deps.Events,
		payments:   deps.Payments,
		subs:       deps.Subscriptions,
		dedup:      deps.Dedup,
		dispatcher: deps.Dispatcher,
		now:        now,
		log:        log,
	}
}

// SetDispatcher switches the service to asynchronous processing. The
// dispatcher is built after the service because its jobs call back into it.
func (s *WebhookService) SetDispatcher(d ports.Dispatcher) {
	s.dispatcher = d
}

// Receive handles one delivery. It returns nil once the event is durably
// recorded; processing errors are stored on the ledger, not returned.
func (s *WebhookService) Receive(ctx context.Context, payload []byte, signatureHeader string) error {
	if s.gateway == nil {
		return domain.ErrGatewayDisabled
	}

	// 1. Authenticity. Nothing is read or written before this passes.
	ev, err := s.gateway.ParseWebhook(payload, signatureHeader)
	if err != nil {
		s.log.Warn().Err(err).Msg("webhook rejected")
		return err
	}

	// 2. Fast path.
	if s.dedup != nil {
		done, err := s.dedup.IsProcessed(ctx, ev.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("dedup check failed, consulting ledger")
		} else if done {
			s.log.Debug().Str("event_id", ev.ID).Msg("duplicate webhook skipped")
			return nil
		}
	}

	// 3. Durable "seen" marker.
	rec, created, err := s.events.Record(ctx, &domain.WebhookEventRecord{
		EventID:    ev.ID,
		Type:       ev.Type,
		ObjectID:   ev.ObjectID,
		ReceivedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("record webhook: %w", err)
	}
	if rec.Processed() {
		s.markCache(ctx, ev.ID)
		s.log.Debug().Str("event_id", ev.ID).Msg("webhook already processed")
		return nil
	}
	if !created {
		s.log.Info().Str("event_id", ev.ID).Int("attempts", rec.Attempts).Msg("reprocessing webhook")
	}

	// 4. Apply.
	if s.dispatcher != nil {
		s.dispatcher.Enqueue(ev.ObjectID, func(jobCtx context.Context) {
			s.process(jobCtx, ev)
		})
		return nil
	}
	s.process(ctx, ev)
	return nil
}

// process applies ev and settles its ledger entry.
func (s *WebhookService) process(ctx context.Context, ev *domain.GatewayEvent) {
	if err := s.Apply(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_id", ev.ID).
			Str("type", string(ev.Type)).
			Msg("webhook processing failed")
		if mErr := s.events.MarkFailed(ctx, ev.ID, err.Error()); mErr != nil {
			s.log.Warn().Err(mErr).Str("event_id", ev.ID).Msg("failed to record webhook error")
		}
		return
	}
	if err := s.events.MarkProcessed(ctx, ev.ID, s.now()); err != nil {
		s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("failed to mark webhook processed")
		return
	}
	s.markCache(ctx, ev.ID)
}

// Apply runs the reconciliation state machine for one event.
func (s *WebhookService) Apply(ctx context.Context, ev *domain.GatewayEvent) error {
	switch ev.Type {
	case domain.EventPaymentSucceeded:
		if ev.Payment == nil {
			return fmt.Errorf("%s: missing payment intent", ev.Type)
		}
		return s.settlePayment(ctx, ev.Payment, domain.PaymentSucceeded)
	case domain.EventPaymentFailed:
		if ev.Payment == nil {
			return fmt.Errorf("%s: missing payment intent", ev.Type)
		}
		return s.settlePayment(ctx, ev.Payment, domain.PaymentFailed)
	case domain.EventInvoicePaid:
		if ev.Invoice == nil {
			return fmt.Errorf("%s: missing invoice", ev.Type)
		}
		return s.advanceSubscription(ctx, ev.Invoice)
	case domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		if ev.Subscription == nil {
			return fmt.Errorf("%s: missing subscription", ev.Type)
		}
		return s.mirrorSubscription(ctx, ev.Subscription)
	default:
		s.log.Debug().Str("event_id", ev.ID).Str("type", string(ev.Type)).Msg("webhook type ignored")
		return nil
	}
}

// settlePayment moves the intent's record to `to` through the lattice.
// Transitions the lattice forbids (failed after succeeded, repeats) are
// silent no-ops.
func (s *WebhookService) settlePayment(ctx context.Context, p *domain.PaymentIntentData, to domain.PaymentStatus) error {
	outcome := domain.PaymentOutcome{
		PaymentMethod: p.PaymentMethod,
		ReceiptURL:    p.ReceiptURL,
		FailureReason: p.FailureReason,
	}
	from := domain.PaymentPredecessors(to)

	changed, err := s.payments.Transition(ctx, p.IntentID, from, to, outcome, s.now())
	if errors.Is(err, domain.ErrPaymentNotFound) {
		changed, err = s.recordFromEvent(ctx, p, to, from, outcome)
	}
	if err != nil {
		return fmt.Errorf("settle payment %s: %w", p.IntentID, err)
	}

	s.log.Info().
		Str("intent_id", p.IntentID).
		Str("status", string(to)).
		Bool("changed", changed).
		Msg("payment reconciled")
	return nil
}

// recordFromEvent creates the local mirror of an intent this service has not
// seen yet. A concurrent insert falls back to the conditional transition.
func (s *WebhookService) recordFromEvent(
	ctx context.Context,
	p *domain.PaymentIntentData,
	to domain.PaymentStatus,
	from []domain.PaymentStatus,
	outcome domain.PaymentOutcome,
) (bool, error) {
	accountID := p.Metadata[metaAccountID]
	if accountID == "" {
		s.log.Warn().Str("intent_id", p.IntentID).Msg("payment intent without account metadata ignored")
		return false, nil
	}

	now := s.now()
	rec := &domain.PaymentRecord{
		ID:                uuid.NewString(),
		AccountID:         accountID,
		GatewayIntentID:   p.IntentID,
		GatewayCustomerID: p.CustomerID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            to,
		Description:       p.Description,
		Metadata:          p.Metadata,
		PaymentMethod:     outcome.PaymentMethod,
		ReceiptURL:        outcome.ReceiptURL,
		FailureReason:     outcome.FailureReason,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := s.payments.Create(ctx, rec)
	if errors.Is(err, domain.ErrDuplicatePayment) {
		return s.payments.Transition(ctx, p.IntentID, from, to, outcome, now)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *WebhookService) advanceSubscription(ctx context.Context, inv *domain.InvoiceData) error {
	if inv.SubscriptionID == "" {
		return nil
	}
	changed, err := s.subs.AdvancePeriod(ctx, inv.SubscriptionID, inv.PeriodStart, inv.PeriodEnd, s.now())
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		s.log.Warn().Str("subscription_id", inv.SubscriptionID).Msg("invoice for unknown subscription ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("advance subscription %s: %w", inv.SubscriptionID, err)
	}
	s.log.Info().
		Str("subscription_id", inv.SubscriptionID).
		Time("period_end", inv.PeriodEnd).
		Bool("changed", changed).
		Msg("subscription period reconciled")
	return nil
}

func (s *WebhookService) mirrorSubscription(ctx context.Context, sub *domain.SubscriptionData) error {
	now := s.now()
	changed, err := s.subs.ApplyState(ctx, sub.SubscriptionID, sub.State, now)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		s.log.Warn().Str("subscription_id", sub.SubscriptionID).Msg("event for unknown subscription ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("mirror subscription %s: %w", sub.SubscriptionID, err)
	}
	st := sub.State
	if changed && st.CurrentPeriodStart != nil && st.CurrentPeriodEnd != nil {
		if _, err := s.subs.AdvancePeriod(ctx, sub.SubscriptionID, *st.CurrentPeriodStart, *st.CurrentPeriodEnd, now); err != nil {
			return fmt.Errorf("mirror subscription %s: %w", sub.SubscriptionID, err)
		}
	}
	s.log.Info().
		Str("subscription_id", sub.SubscriptionID).
		Str("status", string(st.Status)).
		Bool("changed", changed).
		Msg("subscription mirrored")
	return nil
}

func (s *WebhookService) markCache(ctx context.Context, eventID string) {
	if s.dedup == nil {
		return
	}
	if err := s.dedup.MarkProcessed(ctx, eventID); err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("failed to set dedup key")
	}
}
