package service

import (
	"context"
	"errors"
	"testing"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

func TestBillingService_ResolveOrCreateCustomer_CachesID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.signup(t, "a@x.com")

	id, err := f.billing.ResolveOrCreateCustomer(ctx, res.Account)
	if err != nil {
		t.Fatalf("ResolveOrCreateCustomer: %v", err)
	}
	if f.gateway.callCount("CreateCustomer") != 1 {
		t.Errorf("expected one customer creation")
	}
	stored, _ := f.accounts.FindByID(ctx, res.Account.ID)
	if stored.GatewayCustomerID != id {
		t.Errorf("expected cached id %s, got %s", id, stored.GatewayCustomerID)
	}

	again, _ := f.billing.ResolveOrCreateCustomer(ctx, stored)
	if again != id || f.gateway.callCount("FindCustomerByEmail") != 1 {
		t.Errorf("expected cached id without a second lookup")
	}
}

func TestBillingService_ResolveOrCreateCustomer_ReusesExisting(t *testing.T) {
	f := newFixture(t)
	f.gateway.findCustomerFn = func(string) (string, error) { return "cus_existing", nil }
	res := f.signup(t, "a@x.com")

	id, err := f.billing.ResolveOrCreateCustomer(context.Background(), res.Account)
	if err != nil {
		t.Fatalf("ResolveOrCreateCustomer: %v", err)
	}
	if id != "cus_existing" || f.gateway.callCount("CreateCustomer") != 0 {
		t.Errorf("expected existing customer reused, got %s", id)
	}
}

func TestBillingService_CreatePaymentIntent_ValidatesBeforeGateway(t *testing.T) {
	f := newFixture(t)
	res := f.signup(t, "a@x.com")

	cases := []ports.CreatePaymentInput{
		{Amount: 0},
		{Amount: -5},
		{Amount: 100, Currency: "dollars"},
	}
	for _, in := range cases {
		_, err := f.billing.CreatePaymentIntent(context.Background(), res.Account, in)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%+v: expected ValidationError, got %v", in, err)
		}
	}
	if len(f.gateway.calls) != 0 {
		t.Errorf("expected no gateway calls, got %v", f.gateway.calls)
	}
}

func TestBillingService_CreatePaymentIntent_GatewayErrorLeavesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.gateway.createIntentFn = func(ports.PaymentIntentParams) (*ports.PaymentIntentResult, error) {
		return nil, &domain.GatewayError{Op: "create_payment_intent", Retryable: true, Err: errors.New("502")}
	}
	res := f.signup(t, "a@x.com")

	_, err := f.billing.CreatePaymentIntent(context.Background(), res.Account, ports.CreatePaymentInput{Amount: 5000})
	var ge *domain.GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	list, _ := f.billing.ListPayments(context.Background(), res.Account.ID, 0)
	if len(list) != 0 {
		t.Errorf("expected no payment records, got %d", len(list))
	}
}

func TestBillingService_CreatePaymentIntent_DefaultsAndMetadata(t *testing.T) {
	f := newFixture(t)
	var sent ports.PaymentIntentParams
	f.gateway.createIntentFn = func(p ports.PaymentIntentParams) (*ports.PaymentIntentResult, error) {
		sent = p
		return &ports.PaymentIntentResult{IntentID: "pi_9", ClientToken: "pi_9_secret"}, nil
	}
	res := f.signup(t, "a@x.com")

	out, err := f.billing.CreatePaymentIntent(context.Background(), res.Account, ports.CreatePaymentInput{
		Amount:   1200,
		Metadata: map[string]string{"quote": "q-7"},
	})
	if err != nil {
		t.Fatalf("CreatePaymentIntent: %v", err)
	}
	if out.ClientToken != "pi_9_secret" {
		t.Errorf("unexpected client token %q", out.ClientToken)
	}
	if sent.Currency != "usd" || sent.CustomerID == "" {
		t.Errorf("expected usd and a customer, got %+v", sent)
	}
	if sent.Metadata["account_id"] != res.Account.ID || sent.Metadata["quote"] != "q-7" {
		t.Errorf("unexpected metadata %v", sent.Metadata)
	}
}

// a@x.com pays 5000 usd; the succeeded webhook settles the record.
func TestBillingScenario_PaymentIntentSettledByWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Signup(ctx, ports.SignupInput{Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	login, err := f.auth.Login(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	account, _, err := f.guard.Authorize(ctx, login.Session.ID, nil, testOrigin, "POST /payments/intent")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	intent, err := f.billing.CreatePaymentIntent(ctx, account, ports.CreatePaymentInput{Amount: 5000, Currency: "usd"})
	if err != nil {
		t.Fatalf("CreatePaymentIntent: %v", err)
	}
	rec, err := f.payments.FindByIntentID(ctx, intent.IntentID)
	if err != nil {
		t.Fatalf("FindByIntentID: %v", err)
	}
	if rec.Status != domain.PaymentPending {
		t.Fatalf("expected pending, got %s", rec.Status)
	}

	f.gateway.parseFn = eventParser(paymentEvent("evt_1", domain.EventPaymentSucceeded, intent.IntentID, account.ID))
	if err := f.webhooks.Receive(ctx, []byte(`{}`), "sig"); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	history, err := f.billing.ListPayments(ctx, account.ID, 0)
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one payment, got %d", len(history))
	}
	if history[0].Status != domain.PaymentSucceeded || history[0].Amount != 5000 || history[0].Currency != "usd" {
		t.Errorf("unexpected payment: %+v", history[0])
	}
}
