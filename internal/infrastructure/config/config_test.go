package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.StorageDriver != DriverMongo || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Stripe.Timeout != 10*time.Second {
		t.Fatalf("expected 10s gateway timeout, got %s", cfg.Stripe.Timeout)
	}
	if cfg.Auth.BcryptCost != 12 || cfg.WebhookWorkers != 0 {
		t.Fatalf("unexpected auth/worker defaults: %+v", cfg)
	}
	if cfg.GatewayEnabled() {
		t.Fatalf("gateway must be disabled without a key")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"STORAGE_DRIVER":        "Memory",
		"STRIPE_SECRET_KEY":     "sk_test_1",
		"STRIPE_WEBHOOK_SECRET": "whsec_1",
		"GATEWAY_TIMEOUT":       "3s",
		"WEBHOOK_WORKERS":       "4",
		"REDIS_ENABLED":         "true",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != DriverMemory || !cfg.GatewayEnabled() || !cfg.Redis.Enabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Stripe.Timeout != 3*time.Second || cfg.WebhookWorkers != 4 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":         {"STORAGE_DRIVER": "postgres"},
		"key without secret":     {"STRIPE_SECRET_KEY": "sk_test_1"},
		"production without key": {"ENV": "production"},
		"negative worker count":  {"WEBHOOK_WORKERS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(env))
			if err == nil || !strings.HasPrefix(err.Error(), "config:") {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}
}
