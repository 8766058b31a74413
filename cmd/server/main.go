// Command server runs the account and billing HTTP API.
//
// @title                       Account & Billing API
// @version                     1.0
// @BasePath                    /
// @securityDefinitions.apikey  SessionCookie
// @in                          cookie
// @name                        session
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/2pbal/account-billing/internal/api"
	"github.com/2pbal/account-billing/internal/api/metrics"
	"github.com/2pbal/account-billing/internal/app"
	"github.com/2pbal/account-billing/internal/core/ports"
	"github.com/2pbal/account-billing/internal/infrastructure/config"
	"github.com/2pbal/account-billing/internal/infrastructure/db/mongo"
	"github.com/2pbal/account-billing/internal/infrastructure/db/redis"
	"github.com/2pbal/account-billing/internal/infrastructure/gateway/stripe"
	"github.com/2pbal/account-billing/internal/infrastructure/notify"
	"github.com/2pbal/account-billing/internal/infrastructure/queue"
	"github.com/2pbal/account-billing/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "account-billing",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	var (
		store app.Storage
		db    *mongodriver.Database
	)
	switch cfg.StorageDriver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		store = app.MemoryStorage()
	default:
		client, database, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		if store, err = app.MongoStorage(ctx, database); err != nil {
			return err
		}
		db = database
	}

	// --- Dedup cache ---
	var (
		dedup ports.DedupCache
		rdb   *goredis.Client
	)
	if cfg.Redis.Enabled {
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer client.Close()
		rdb = client
		dedup = redis.NewDedupCache(client)
	}

	// --- Payment gateway ---
	var gateway ports.PaymentGateway
	if cfg.GatewayEnabled() {
		gateway = stripe.New(stripe.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Timeout:       cfg.Stripe.Timeout,
		}, log.With().Str("component", "stripe").Logger())
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set; billing endpoints are disabled")
	}

	application, err := app.New(store, app.Deps{
		Gateway:            gateway,
		Dedup:              dedup,
		Sender:             notify.NewLogSender(cfg.Auth.VerificationURL, log.With().Str("component", "notify").Logger()),
		VerificationSecret: cfg.Auth.VerificationSecret,
		BcryptCost:         cfg.Auth.BcryptCost,
	}, log)
	if err != nil {
		return err
	}

	// --- Webhook workers ---
	if cfg.WebhookWorkers > 0 {
		dispatcher := queue.NewDispatcher(cfg.WebhookWorkers, log.With().Str("component", "dispatcher").Logger())
		dispatcher.Start(ctx)
		application.Webhooks.SetDispatcher(dispatcher)
		metrics.RegisterQueueDepth(dispatcher.Pending)
	}

	// --- HTTP ---
	e := api.NewRouter(application.Services, api.Options{
		Logger:        log,
		SecureCookies: cfg.IsProduction(),
		AuthRateLimit: cfg.Auth.RateLimit,
		Mongo:         db,
		Redis:         rdb,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("storage", cfg.StorageDriver).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
