package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

func TestAuthService_SignupThenLogin_ResolvesSameAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	signed, err := f.auth.Signup(ctx, ports.SignupInput{Email: "a@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if signed.Session == nil || signed.Session.AccountID != signed.Account.ID {
		t.Fatalf("expected a session for the new account")
	}

	logged, err := f.auth.Login(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	s, err := f.sessions.Resolve(ctx, logged.Session.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.AccountID != signed.Account.ID {
		t.Errorf("expected %s, got %s", signed.Account.ID, s.AccountID)
	}
}

func TestAuthService_Login_RecordsLastLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@x.com")
	f.clock.Advance(time.Hour)

	res, err := f.auth.Login(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	stored, _ := f.accounts.FindByID(ctx, res.Account.ID)
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(f.clock.Now()) {
		t.Errorf("expected last login %v, got %v", f.clock.Now(), stored.LastLoginAt)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@x.com")
	if _, err := f.auth.Login(context.Background(), "a@x.com", "secret2"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.signup(t, "a@x.com")

	if err := f.auth.Logout(ctx, res.Session.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.sessions.Resolve(ctx, res.Session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected session gone, got %v", err)
	}
}

func TestAuthService_VerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.signup(t, "a@x.com")

	token := f.sender.tokens["a@x.com"]
	if token == "" {
		t.Fatal("expected a verification token to be sent at signup")
	}
	acc, err := f.auth.VerifyEmail(ctx, token)
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !acc.Verified || acc.ID != res.Account.ID {
		t.Errorf("expected verified account %s, got %+v", res.Account.ID, acc)
	}
}

func TestAuthService_VerifyEmail_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@x.com")
	token := f.sender.tokens["a@x.com"]

	if _, err := f.auth.VerifyEmail(ctx, "garbage"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("garbage: expected ErrInvalidToken, got %v", err)
	}

	f.clock.Advance(2 * time.Hour)
	if _, err := f.auth.VerifyEmail(ctx, token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expired: expected ErrInvalidToken, got %v", err)
	}
}
