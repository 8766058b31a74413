package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
	"github.com/2pbal/account-billing/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ---------------------------------------------------------------------------
// Gateway stub
// ---------------------------------------------------------------------------

type stubGateway struct {
	mu    sync.Mutex
	calls []string

	findCustomerFn       func(email string) (string, error)
	createCustomerFn     func(a *domain.Account) (string, error)
	createIntentFn       func(p ports.PaymentIntentParams) (*ports.PaymentIntentResult, error)
	createSubscriptionFn func(customerID, priceID string) (*ports.GatewaySubscription, error)
	changePlanFn         func(subID, priceID string) (*ports.GatewaySubscription, error)
	cancelFn             func(subID string, atPeriodEnd bool) (*ports.GatewaySubscription, error)
	parseFn              func(payload []byte, header string) (*domain.GatewayEvent, error)
}

func (g *stubGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *stubGateway) callCount(call string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (g *stubGateway) FindCustomerByEmail(_ context.Context, email string) (string, error) {
	g.record("FindCustomerByEmail")
	if g.findCustomerFn != nil {
		return g.findCustomerFn(email)
	}
	return "", nil
}

func (g *stubGateway) CreateCustomer(_ context.Context, a *domain.Account) (string, error) {
	g.record("CreateCustomer")
	if g.createCustomerFn != nil {
		return g.createCustomerFn(a)
	}
	return "cus_" + a.ID[:8], nil
}

func (g *stubGateway) CreatePaymentIntent(_ context.Context, p ports.PaymentIntentParams) (*ports.PaymentIntentResult, error) {
	g.record("CreatePaymentIntent")
	if g.createIntentFn != nil {
		return g.createIntentFn(p)
	}
	return &ports.PaymentIntentResult{IntentID: "pi_1", ClientToken: "pi_1_secret", Status: "requires_payment_method"}, nil
}

func (g *stubGateway) CreateSubscription(_ context.Context, customerID, priceID string, _ map[string]string) (*ports.GatewaySubscription, error) {
	g.record("CreateSubscription")
	if g.createSubscriptionFn != nil {
		return g.createSubscriptionFn(customerID, priceID)
	}
	return &ports.GatewaySubscription{
		ID:          "sub_1",
		CustomerID:  customerID,
		ClientToken: "pi_sub_secret",
		State:       monthly(priceID, 1500, domain.SubscriptionIncomplete),
	}, nil
}

func (g *stubGateway) ChangePlan(_ context.Context, subID, priceID string) (*ports.GatewaySubscription, error) {
	g.record("ChangePlan")
	if g.changePlanFn != nil {
		return g.changePlanFn(subID, priceID)
	}
	return &ports.GatewaySubscription{ID: subID, State: monthly(priceID, 3000, domain.SubscriptionActive)}, nil
}

func (g *stubGateway) Cancel(_ context.Context, subID string, atPeriodEnd bool) (*ports.GatewaySubscription, error) {
	g.record("Cancel")
	if g.cancelFn != nil {
		return g.cancelFn(subID, atPeriodEnd)
	}
	return nil, &domain.GatewayError{Op: "cancel", Err: context.DeadlineExceeded, Timeout: true, Retryable: true}
}

func (g *stubGateway) ParseWebhook(payload []byte, header string) (*domain.GatewayEvent, error) {
	g.record("ParseWebhook")
	if g.parseFn != nil {
		return g.parseFn(payload, header)
	}
	return nil, domain.ErrSignature
}

func monthly(priceID string, amount int64, status domain.SubscriptionStatus) domain.SubscriptionState {
	return domain.SubscriptionState{
		Status:        status,
		PriceID:       priceID,
		Amount:        amount,
		Currency:      "usd",
		Interval:      "month",
		IntervalCount: 1,
	}
}

// ---------------------------------------------------------------------------
// Fixture: every service wired over the in-memory repositories.
// ---------------------------------------------------------------------------

type fixture struct {
	clock    *fakeClock
	gateway  *stubGateway
	accounts *memory.AccountRepository
	sessRepo *memory.SessionRepository
	actRepo  *memory.ActivityRepository
	payments *memory.PaymentRepository
	subsRepo *memory.SubscriptionRepository
	events   *memory.WebhookEventRepository
	dedup    *memory.DedupCache

	sessions    *SessionManager
	credentials *CredentialStore
	activity    ports.ActivityLogger
	guard       *Guard
	auth        *AuthService
	account     *AccountService
	admin       *AdminService
	billing     *BillingService
	subs        *SubscriptionService
	webhooks    *WebhookService
	sender      *recordingSender
}

type recordingSender struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (r *recordingSender) SendVerification(_ context.Context, email, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[email] = token
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	f := &fixture{
		clock:    newFakeClock(),
		gateway:  &stubGateway{},
		accounts: memory.NewAccountRepository(),
		sessRepo: memory.NewSessionRepository(),
		actRepo:  memory.NewActivityRepository(),
		payments: memory.NewPaymentRepository(),
		subsRepo: memory.NewSubscriptionRepository(),
		events:   memory.NewWebhookEventRepository(),
		dedup:    memory.NewDedupCache(),
		sender:   &recordingSender{tokens: make(map[string]string)},
	}
	now := f.clock.Now

	f.sessions = NewSessionManager(f.sessRepo, now, log)
	f.credentials = NewCredentialStore(f.accounts, f.sessions, bcrypt.MinCost, now, log)
	f.activity = NewActivityLogger(f.actRepo, now, log)
	f.guard = NewGuard(f.sessions, f.accounts, f.activity, log)
	tokens := NewVerificationTokens("test-secret", time.Hour, now)
	f.auth = NewAuthService(f.credentials, f.sessions, f.accounts, tokens, f.sender, now, log)
	f.account = NewAccountService(f.accounts, f.credentials, now, log)
	f.admin = NewAdminService(f.accounts, f.sessions, f.activity, now, log)
	f.billing = NewBillingService(f.gateway, f.accounts, f.payments, now, log)
	f.subs = NewSubscriptionService(f.gateway, f.billing, f.subsRepo, now, log)
	f.webhooks = NewWebhookService(WebhookDeps{
		Gateway:       f.gateway,
		Events:        f.events,
		Payments:      f.payments,
		Subscriptions: f.subsRepo,
		Dedup:         f.dedup,
		Clock:         now,
	}, log)
	return f
}

func (f *fixture) signup(t *testing.T, email string) *ports.AuthResult {
	t.Helper()
	res, err := f.auth.Signup(context.Background(), ports.SignupInput{Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return res
}

func (f *fixture) signupAdmin(t *testing.T, email string) *ports.AuthResult {
	t.Helper()
	res := f.signup(t, email)
	res.Account.Role = domain.RoleAdmin
	if err := f.accounts.Update(context.Background(), res.Account); err != nil {
		t.Fatalf("promote %s: %v", email, err)
	}
	return res
}

func (f *fixture) activityFor(t *testing.T, actorID string) []*domain.ActivityLogEntry {
	t.Helper()
	entries, err := f.actRepo.List(context.Background(), ports.ActivityFilter{ActorID: actorID})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	return entries
}
