package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func eventParser(evs ...*domain.GatewayEvent) func([]byte, string) (*domain.GatewayEvent, error) {
	i := 0
	return func([]byte, string) (*domain.GatewayEvent, error) {
		ev := evs[i%len(evs)]
		i++
		return ev, nil
	}
}

func paymentEvent(id string, typ domain.EventType, intentID, accountID string) *domain.GatewayEvent {
	return &domain.GatewayEvent{
		ID:       id,
		Type:     typ,
		ObjectID: intentID,
		Payment: &domain.PaymentIntentData{
			IntentID:      intentID,
			Amount:        5000,
			Currency:      "usd",
			Metadata:      map[string]string{"account_id": accountID},
			PaymentMethod: "card",
			ReceiptURL:    "https://pay.example/receipt/" + intentID,
			FailureReason: failureFor(typ),
		},
	}
}

func failureFor(typ domain.EventType) string {
	if typ == domain.EventPaymentFailed {
		return "card_declined"
	}
	return ""
}

func (f *fixture) deliver(t *testing.T, ev *domain.GatewayEvent) {
	t.Helper()
	f.gateway.parseFn = eventParser(ev)
	if err := f.webhooks.Receive(context.Background(), []byte(`{}`), "sig"); err != nil {
		t.Fatalf("Receive %s: %v", ev.ID, err)
	}
}

func (f *fixture) seedPayment(t *testing.T, intentID string, status domain.PaymentStatus) {
	t.Helper()
	err := f.payments.Create(context.Background(), &domain.PaymentRecord{
		ID:              "rec-" + intentID,
		AccountID:       "acc-1",
		GatewayIntentID: intentID,
		Amount:          5000,
		Currency:        "usd",
		Status:          status,
	})
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
}

func (f *fixture) paymentStatus(t *testing.T, intentID string) domain.PaymentStatus {
	t.Helper()
	p, err := f.payments.FindByIntentID(context.Background(), intentID)
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	return p.Status
}

// syncDispatcher runs jobs inline and remembers their keys.
type syncDispatcher struct {
	keys []string
}

func (d *syncDispatcher) Enqueue(key string, job func(ctx context.Context)) {
	d.keys = append(d.keys, key)
	job(context.Background())
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestWebhookService_BadSignature_NoSideEffects(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, "pi_1", domain.PaymentPending)

	err := f.webhooks.Receive(context.Background(), []byte(`{}`), "forged")
	if !errors.Is(err, domain.ErrSignature) {
		t.Fatalf("expected ErrSignature, got %v", err)
	}
	if f.paymentStatus(t, "pi_1") != domain.PaymentPending {
		t.Error("payment must not change")
	}
	if f.events.Get("evt_1") != nil {
		t.Error("no event should be recorded")
	}
}

func TestWebhookService_PaymentSucceeded(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, "pi_1", domain.PaymentPending)

	f.deliver(t, paymentEvent("evt_1", domain.EventPaymentSucceeded, "pi_1", "acc-1"))

	p, _ := f.payments.FindByIntentID(context.Background(), "pi_1")
	if p.Status != domain.PaymentSucceeded || p.PaymentMethod != "card" || p.ReceiptURL == "" {
		t.Errorf("unexpected payment: %+v", p)
	}
	rec := f.events.Get("evt_1")
	if rec == nil || !rec.Processed() {
		t.Errorf("expected event marked processed, got %+v", rec)
	}
	if done, _ := f.dedup.IsProcessed(context.Background(), "evt_1"); !done {
		t.Error("expected dedup cache marked")
	}
}

func TestWebhookService_DuplicateSucceededDelivery(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, "pi_1", domain.PaymentPending)
	ev := paymentEvent("evt_1", domain.EventPaymentSucceeded, "pi_1", "acc-1")

	f.deliver(t, ev)
	first, _ := f.payments.FindByIntentID(context.Background(), "pi_1")
	f.clock.Advance(time.Minute)
	f.deliver(t, ev)
	second, _ := f.payments.FindByIntentID(context.Background(), "pi_1")

	if second.Status != domain.PaymentSucceeded {
		t.Errorf("expected succeeded, got %s", second.Status)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("redelivery must not touch the record")
	}
	list, _ := f.payments.ListByAccount(context.Background(), "acc-1", 0)
	if len(list) != 1 {
		t.Errorf("expected one record, got %d", len(list))
	}
}

func TestWebhookService_DuplicateWithoutCacheUsesLedger(t *testing.T) {
	f := newFixture(t)
	f.webhooks.dedup = nil
	f.seedPayment(t, "pi_1", domain.PaymentPending)
	ev := paymentEvent("evt_1", domain.EventPaymentSucceeded, "pi_1", "acc-1")

	f.deliver(t, ev)
	f.deliver(t, ev)

	if rec := f.events.Get("evt_1"); rec.Attempts != 2 || !rec.Processed() {
		t.Errorf("expected 2 attempts on a processed record, got %+v", rec)
	}
}

func TestWebhookService_FailedAfterSucceeded(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, "pi_1", domain.PaymentPending)

	f.deliver(t, paymentEvent("evt_1", domain.EventPaymentSucceeded, "pi_1", "acc-1"))
	f.deliver(t, paymentEvent("evt_2", domain.EventPaymentFailed, "pi_1", "acc-1"))

	p, _ := f.payments.FindByIntentID(context.Background(), "pi_1")
	if p.Status != domain.PaymentSucceeded {
		t.Errorf("expected succeeded to win, got %s", p.Status)
	}
	if p.FailureReason != "" {
		t.Errorf("failure reason must not be written, got %q", p.FailureReason)
	}
	if rec := f.events.Get("evt_2"); !rec.Processed() {
		t.Error("a no-op event is still processed")
	}
}

func TestWebhookService_SucceededAfterFailed(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, "pi_1", domain.PaymentPending)

	f.deliver(t, paymentEvent("evt_1", domain.EventPaymentFailed, "pi_1", "acc-1"))
	if got := f.paymentStatus(t, "pi_1"); got != domain.PaymentFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	f.deliver(t, paymentEvent("evt_2", domain.EventPaymentSucceeded, "pi_1", "acc-1"))

	p, _ := f.payments.FindByIntentID(context.Background(), "pi_1")
	if p.Status != domain.PaymentSucceeded || p.FailureReason != "" {
		t.Errorf("expected retry to succeed, got %+v", p)
	}
}

func TestWebhookService_ConcurrentMixedDeliveriesForOneIntent(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, "pi_1", domain.PaymentPending)

	const perType = 50
	events := make(map[string]*domain.GatewayEvent, 2*perType)
	for i := 0; i < perType; i++ {
		ok := paymentEvent(fmt.Sprintf("evt_ok_%d", i), domain.EventPaymentSucceeded, "pi_1", "acc-1")
		bad := paymentEvent(fmt.Sprintf("evt_bad_%d", i), domain.EventPaymentFailed, "pi_1", "acc-1")
		events[ok.ID] = ok
		events[bad.ID] = bad
	}
	// The payload carries the event id so concurrent deliveries parse independently.
	f.gateway.parseFn = func(payload []byte, _ string) (*domain.GatewayEvent, error) {
		return events[string(payload)], nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*len(events))
	for id := range events {
		// Every event is delivered twice at once to exercise the ledger.
		for n := 0; n < 2; n++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if err := f.webhooks.Receive(context.Background(), []byte(id), "sig"); err != nil {
					errs <- fmt.Errorf("%s: %w", id, err)
				}
			}(id)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Receive: %v", err)
	}

	p, _ := f.payments.FindByIntentID(context.Background(), "pi_1")
	if p.Status != domain.PaymentSucceeded {
		t.Fatalf("expected succeeded to win, got %s", p.Status)
	}
	if p.FailureReason != "" {
		t.Errorf("failure reason leaked onto a succeeded payment: %q", p.FailureReason)
	}
	for id := range events {
		rec := f.events.Get(id)
		if rec == nil {
			t.Errorf("%s: not recorded", id)
			continue
		}
		if rec.Attempts != 2 || !rec.Processed() {
			t.Errorf("%s: expected one processed row with 2 attempts, got %+v", id, rec)
		}
	}
}

func TestWebhookService_SucceededForUnknownIntentCreatesRecord(t *testing.T) {
	f := newFixture(t)
	f.deliver(t, paymentEvent("evt_1", domain.EventPaymentSucceeded, "pi_new", "acc-9"))

	p, err := f.payments.FindByIntentID(context.Background(), "pi_new")
	if err != nil {
		t.Fatalf("expected record to be created: %v", err)
	}
	if p.AccountID != "acc-9" || p.Status != domain.PaymentSucceeded || p.Amount != 5000 {
		t.Errorf("unexpected record: %+v", p)
	}
}

func TestWebhookService_UnknownTypeAcknowledged(t *testing.T) {
	f := newFixture(t)
	f.deliver(t, &domain.GatewayEvent{ID: "evt_x", Type: "charge.dispute.created", ObjectID: "dp_1"})
	if rec := f.events.Get("evt_x"); rec == nil || !rec.Processed() {
		t.Errorf("expected unknown event acknowledged and processed, got %+v", rec)
	}
}

// failOncePayments fails the first transition to simulate a storage outage.
type failOncePayments struct {
	ports.PaymentRepository
	failed bool
}

func (r *failOncePayments) Transition(
	ctx context.Context,
	intentID string,
	from []domain.PaymentStatus,
	to domain.PaymentStatus,
	outcome domain.PaymentOutcome,
	at time.Time,
) (bool, error) {
	if !r.failed {
		r.failed = true
		return false, errors.New("connection reset")
	}
	return r.PaymentRepository.Transition(ctx, intentID, from, to, outcome, at)
}

func TestWebhookService_FailedProcessingIsRetriedOnRedelivery(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, "pi_1", domain.PaymentPending)
	f.webhooks.payments = &failOncePayments{PaymentRepository: f.payments}
	ev := paymentEvent("evt_1", domain.EventPaymentSucceeded, "pi_1", "acc-1")

	f.deliver(t, ev)
	rec := f.events.Get("evt_1")
	if rec.Processed() || rec.LastError == "" {
		t.Fatalf("expected unprocessed record with error, got %+v", rec)
	}
	if f.paymentStatus(t, "pi_1") != domain.PaymentPending {
		t.Fatal("payment should be untouched")
	}

	f.deliver(t, ev)
	if f.paymentStatus(t, "pi_1") != domain.PaymentSucceeded {
		t.Error("expected redelivery to apply the event")
	}
	if rec := f.events.Get("evt_1"); !rec.Processed() || rec.LastError != "" {
		t.Errorf("expected processed record, got %+v", rec)
	}
}

func TestWebhookService_InvoicePaidAdvancesPeriodOnly(t *testing.T) {
	f := newFixture(t)
	_, sub := seedSubscription(t, f)
	ctx := context.Background()

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	may := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	invoice := func(id string, start, end time.Time) *domain.GatewayEvent {
		return &domain.GatewayEvent{
			ID:       id,
			Type:     domain.EventInvoicePaid,
			ObjectID: "sub_1",
			Invoice:  &domain.InvoiceData{InvoiceID: "in_" + id, SubscriptionID: "sub_1", PeriodStart: start, PeriodEnd: end},
		}
	}

	f.deliver(t, invoice("evt_apr", april, may))
	f.deliver(t, invoice("evt_mar", march, april)) // stale, arrives late

	rec, _ := f.subsRepo.FindByID(ctx, sub.SubscriptionID)
	if rec.CurrentPeriodEnd == nil || !rec.CurrentPeriodEnd.Equal(may) {
		t.Errorf("expected period end %v, got %v", may, rec.CurrentPeriodEnd)
	}
}

func TestWebhookService_SubscriptionDeletedThenUpdatedStaysCanceled(t *testing.T) {
	f := newFixture(t)
	_, sub := seedSubscription(t, f)
	canceledAt := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	deleted := monthly("price_basic", 1500, domain.SubscriptionCanceled)
	deleted.CanceledAt = &canceledAt
	f.deliver(t, &domain.GatewayEvent{
		ID: "evt_del", Type: domain.EventSubscriptionDeleted, ObjectID: "sub_1",
		Subscription: &domain.SubscriptionData{SubscriptionID: "sub_1", State: deleted},
	})
	f.deliver(t, &domain.GatewayEvent{
		ID: "evt_upd", Type: domain.EventSubscriptionUpdated, ObjectID: "sub_1",
		Subscription: &domain.SubscriptionData{SubscriptionID: "sub_1", State: monthly("price_basic", 1500, domain.SubscriptionActive)},
	})

	rec, _ := f.subsRepo.FindByID(context.Background(), sub.SubscriptionID)
	if rec.Status != domain.SubscriptionCanceled || rec.CanceledAt == nil {
		t.Errorf("expected terminal canceled record, got %+v", rec)
	}
}

func TestWebhookService_DispatcherShardsByObject(t *testing.T) {
	f := newFixture(t)
	f.seedPayment(t, "pi_1", domain.PaymentPending)
	d := &syncDispatcher{}
	f.webhooks.SetDispatcher(d)

	f.deliver(t, paymentEvent("evt_1", domain.EventPaymentSucceeded, "pi_1", "acc-1"))

	if len(d.keys) != 1 || d.keys[0] != "pi_1" {
		t.Errorf("expected one job keyed by pi_1, got %v", d.keys)
	}
	if f.paymentStatus(t, "pi_1") != domain.PaymentSucceeded {
		t.Error("expected the dispatched job to apply the event")
	}
}
