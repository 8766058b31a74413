package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/2pbal/account-billing/internal/core/domain"
)

var testOrigin = domain.Origin{IP: "10.0.0.1", UserAgent: "go-test", RequestID: "req-1"}

func TestGuard_Authorize_NoToken(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.guard.Authorize(context.Background(), "", nil, testOrigin, "GET /auth/me")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if entries := f.activityFor(t, ""); len(entries) != 0 {
		t.Errorf("expected no activity entries, got %d", len(entries))
	}
}

func TestGuard_Authorize_ExpiredSessionLeavesNoEntry(t *testing.T) {
	f := newFixture(t)
	res := f.signup(t, "a@x.com")
	f.clock.Advance(domain.SessionTTL + time.Minute)

	_, _, err := f.guard.Authorize(context.Background(), res.Session.ID, nil, testOrigin, "GET /auth/me")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if entries := f.activityFor(t, ""); len(entries) != 0 {
		t.Errorf("expected no activity entries, got %d", len(entries))
	}
	if f.sessRepo.Len() != 0 {
		t.Errorf("expected expired session purged")
	}
}

func TestGuard_Authorize_OrphanedSessionRevoked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.sessions.Issue(ctx, "ghost-account")

	_, _, err := f.guard.Authorize(ctx, s.ID, nil, testOrigin, "GET /auth/me")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if f.sessRepo.Len() != 0 {
		t.Errorf("expected orphaned session revoked")
	}
}

func TestGuard_Authorize_SuccessLogsOneAttempt(t *testing.T) {
	f := newFixture(t)
	res := f.signup(t, "a@x.com")

	acc, sess, err := f.guard.Authorize(context.Background(), res.Session.ID, nil, testOrigin, "PUT /users/profile")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if acc.ID != res.Account.ID || sess.ID != res.Session.ID {
		t.Errorf("unexpected identity: %s / %s", acc.ID, sess.ID)
	}

	entries := f.activityFor(t, res.Account.ID)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Action != "PUT /users/profile" || e.Detail["outcome"] != domain.OutcomeAttempted {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Origin != testOrigin {
		t.Errorf("expected origin %+v, got %+v", testOrigin, e.Origin)
	}
}

func TestGuard_Authorize_StandardOnAdminRoute(t *testing.T) {
	f := newFixture(t)
	res := f.signup(t, "a@x.com")

	_, _, err := f.guard.Authorize(context.Background(), res.Session.ID, []domain.Role{domain.RoleAdmin}, testOrigin, "GET /admin/users")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	entries := f.activityFor(t, res.Account.ID)
	if len(entries) != 1 || entries[0].Detail["outcome"] != domain.OutcomeForbidden {
		t.Errorf("expected one forbidden entry, got %+v", entries)
	}
}

func TestGuard_Authorize_AdminOnAdminRoute(t *testing.T) {
	f := newFixture(t)
	res := f.signupAdmin(t, "root@x.com")

	acc, _, err := f.guard.Authorize(context.Background(), res.Session.ID, []domain.Role{domain.RoleAdmin}, testOrigin, "GET /admin/users")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !acc.IsAdmin() {
		t.Errorf("expected admin account")
	}
}

func TestGuard_Authorize_DisabledAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.signup(t, "a@x.com")
	res.Account.Active = false
	_ = f.accounts.Update(ctx, res.Account)

	_, _, err := f.guard.Authorize(ctx, res.Session.ID, nil, testOrigin, "GET /auth/me")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	entries := f.activityFor(t, res.Account.ID)
	if len(entries) != 1 || entries[0].Detail["outcome"] != domain.OutcomeDenied {
		t.Errorf("expected one denied entry, got %+v", entries)
	}
}
