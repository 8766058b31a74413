package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	StorageDriver string `env:"STORAGE_DRIVER, default=mongo"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Stripe StripeConfig
	Auth   AuthConfig

	// WebhookWorkers > 0 applies webhook events on a sharded worker pool;
	// zero applies them inline before acknowledging.
	WebhookWorkers int `env:"WEBHOOK_WORKERS, default=0"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=account_billing"`
}

type RedisConfig struct {
	Enabled bool   `env:"REDIS_ENABLED, default=false"`
	Addr    string `env:"REDIS_ADDR,    default=localhost:6379"`
	DB      int    `env:"REDIS_DB,      default=0"`
}

type StripeConfig struct {
	SecretKey     string        `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	Timeout       time.Duration `env:"GATEWAY_TIMEOUT, default=10s"`
}

type AuthConfig struct {
	VerificationSecret string `env:"VERIFICATION_SECRET"`
	VerificationURL    string `env:"VERIFICATION_URL, default=http://localhost:3000/verify-email"`
	// RateLimit is requests per second per IP on signup/login.
	RateLimit  float64 `env:"AUTH_RATE_LIMIT, default=1"`
	BcryptCost int     `env:"BCRYPT_COST,     default=12"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q", DriverMongo, DriverMemory))
	}
	if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set"))
	}
	if c.IsProduction() && c.Auth.VerificationSecret == "" {
		errs = append(errs, errors.New("VERIFICATION_SECRET is required in production"))
	}
	if c.WebhookWorkers < 0 {
		errs = append(errs, errors.New("WEBHOOK_WORKERS must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// GatewayEnabled reports whether Stripe credentials are configured.
func (c *Config) GatewayEnabled() bool {
	return c.Stripe.SecretKey != ""
}
