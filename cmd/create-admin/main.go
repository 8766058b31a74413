// Command create-admin bootstraps an administrator account in MongoDB.
//
// An existing account with the given email is promoted to admin and
// reactivated; pass -reset-password to also overwrite its password.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/app"
	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/service"
	"github.com/2pbal/account-billing/internal/infrastructure/config"
	"github.com/2pbal/account-billing/internal/infrastructure/db/mongo"
	"github.com/2pbal/account-billing/pkg/logger"
)

func main() {
	email := flag.String("email", "", "Admin email (required)")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "Admin password; defaults to $ADMIN_PASSWORD")
	resetPassword := flag.Bool("reset-password", false, "Overwrite the password when the account already exists")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "create-admin"})

	if err := run(ctx, cfg, log, *email, *password, *resetPassword); err != nil {
		log.Fatal().Err(err).Msg("create-admin failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, email, password string, reset bool) error {
	if cfg.StorageDriver != config.DriverMongo {
		return fmt.Errorf("storage driver %q does not persist accounts; use %q", cfg.StorageDriver, config.DriverMongo)
	}

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	store, err := app.MongoStorage(ctx, db)
	if err != nil {
		return err
	}
	application, err := app.New(store, app.Deps{
		VerificationSecret: cfg.Auth.VerificationSecret,
		BcryptCost:         cfg.Auth.BcryptCost,
	}, log)
	if err != nil {
		return err
	}

	existing, err := application.Accounts.FindByEmail(ctx, service.NormalizeEmail(email))
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		acc, err := application.Credentials.Create(ctx, email, password, domain.RoleAdmin, domain.Profile{})
		if err != nil {
			return err
		}
		acc.Verified = true
		if err := application.Accounts.Update(ctx, acc); err != nil {
			return err
		}
		log.Info().Str("account_id", acc.ID).Str("email", acc.Email).Msg("admin account created")
		return nil
	case err != nil:
		return err
	}

	existing.Role = domain.RoleAdmin
	existing.Active = true
	existing.Verified = true
	existing.UpdatedAt = time.Now().UTC()
	if reset {
		if err := application.Credentials.SetPassword(ctx, existing, password); err != nil {
			return err
		}
	} else if err := application.Accounts.Update(ctx, existing); err != nil {
		return err
	}
	log.Info().
		Str("account_id", existing.ID).
		Bool("password_reset", reset).
		Msg("existing account promoted to admin")
	return nil
}
