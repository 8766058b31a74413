// Package app assembles repositories, the payment gateway and the core
// services into the set of use cases the HTTP layer and the command line
// tools run against.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/2pbal/account-billing/internal/api"
	"github.com/2pbal/account-billing/internal/core/ports"
	"github.com/2pbal/account-billing/internal/core/service"
	"github.com/2pbal/account-billing/internal/infrastructure/db/memory"
	mongorepo "github.com/2pbal/account-billing/internal/infrastructure/db/mongo"
)

// Storage is the set of repositories behind the services.
type Storage struct {
	Accounts      ports.AccountRepository
	Sessions      ports.SessionRepository
	Activity      ports.ActivityRepository
	Payments      ports.PaymentRepository
	Subscriptions ports.SubscriptionRepository
	Webhooks      ports.WebhookEventRepository
}

// MemoryStorage keeps everything in process memory.
func MemoryStorage() Storage {
	return Storage{
		Accounts:      memory.NewAccountRepository(),
		Sessions:      memory.NewSessionRepository(),
		Activity:      memory.NewActivityRepository(),
		Payments:      memory.NewPaymentRepository(),
		Subscriptions: memory.NewSubscriptionRepository(),
		Webhooks:      memory.NewWebhookEventRepository(),
	}
}

// MongoStorage builds the MongoDB repositories and makes sure their indexes
// exist.
func MongoStorage(ctx context.Context, db *mongo.Database) (Storage, error) {
	accounts := mongorepo.NewAccountRepository(db)
	sessions := mongorepo.NewSessionRepository(db)
	activity := mongorepo.NewActivityRepository(db)
	payments := mongorepo.NewPaymentRepository(db)
	subs := mongorepo.NewSubscriptionRepository(db)
	webhooks := mongorepo.NewWebhookEventRepository(db)

	if err := mongorepo.EnsureIndexes(ctx, accounts, sessions, activity, payments, subs, webhooks); err != nil {
		return Storage{}, err
	}
	return Storage{
		Accounts:      accounts,
		Sessions:      sessions,
		Activity:      activity,
		Payments:      payments,
		Subscriptions: subs,
		Webhooks:      webhooks,
	}, nil
}

// Deps are the optional collaborators of the services.
type Deps struct {
	// Gateway is nil when no payment provider is configured; billing calls
	// then fail with domain.ErrGatewayDisabled.
	Gateway ports.PaymentGateway
	Dedup   ports.DedupCache
	Sender  ports.VerificationSender

	// VerificationSecret signs email verification tokens. Empty generates a
	// per-process secret, so outstanding tokens die with the process.
	VerificationSecret string
	BcryptCost         int
	Clock              service.Clock
}

// App holds the wired services.
type App struct {
	Services    api.Services
	Credentials *service.CredentialStore
	Accounts    ports.AccountRepository
	Webhooks    *service.WebhookService
}

// New wires the core services over store.
func New(store Storage, deps Deps, log zerolog.Logger) (*App, error) {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}

	secret := deps.VerificationSecret
	if secret == "" {
		var err error
		if secret, err = randomSecret(); err != nil {
			return nil, err
		}
		log.Warn().Msg("VERIFICATION_SECRET not set; verification tokens will not survive a restart")
	}

	now := deps.Clock
	component := func(name string) zerolog.Logger {
		return log.With().Str("component", name).Logger()
	}

	sessions := service.NewSessionManager(store.Sessions, now, component("sessions"))
	credentials := service.NewCredentialStore(store.Accounts, sessions, cost, now, component("credentials"))
	activity := service.NewActivityLogger(store.Activity, now, component("activity"))
	guard := service.NewGuard(sessions, store.Accounts, activity, component("guard"))
	tokens := service.NewVerificationTokens(secret, 0, now)

	billing := service.NewBillingService(deps.Gateway, store.Accounts, store.Payments, now, component("billing"))
	webhooks := service.NewWebhookService(service.WebhookDeps{
		Gateway:       deps.Gateway,
		Events:        store.Webhooks,
		Payments:      store.Payments,
		Subscriptions: store.Subscriptions,
		Dedup:         deps.Dedup,
		Clock:         now,
	}, component("webhooks"))

	return &App{
		Services: api.Services{
			Auth:          service.NewAuthService(credentials, sessions, store.Accounts, tokens, deps.Sender, now, component("auth")),
			Authorizer:    guard,
			Accounts:      service.NewAccountService(store.Accounts, credentials, now, component("accounts")),
			Admin:         service.NewAdminService(store.Accounts, sessions, activity, now, component("admin")),
			Billing:       billing,
			Subscriptions: service.NewSubscriptionService(deps.Gateway, billing, store.Subscriptions, now, component("subscriptions")),
			Webhooks:      webhooks,
		},
		Credentials: credentials,
		Accounts:    store.Accounts,
		Webhooks:    webhooks,
	}, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
