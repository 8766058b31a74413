package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/2pbal/account-billing/internal/api"
	"github.com/2pbal/account-billing/internal/api/middleware"
	"github.com/2pbal/account-billing/internal/app"
	"github.com/2pbal/account-billing/internal/core/domain"
)

type server struct {
	t   *testing.T
	e   *echo.Echo
	app *app.App
}

func newServer(t *testing.T) *server {
	t.Helper()
	a, err := app.New(app.MemoryStorage(), app.Deps{
		VerificationSecret: "test-secret",
		BcryptCost:         bcrypt.MinCost,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	e := api.NewRouter(a.Services, api.Options{
		Logger:   zerolog.Nop(),
		Registry: prometheus.NewRegistry(),
	})
	return &server{t: t, e: e, app: a}
}

func (s *server) do(method, path, body, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) login(email, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, "")
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookie {
			return ck.Value
		}
	}
	s.t.Fatalf("login %s: no session cookie", email)
	return ""
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return body
}

// ---- Session lifecycle ----

func TestRouter_SignupMeLogout(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/auth/signup", `{"email":"A@X.com","password":"secret1"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	token := s.login("a@x.com", "secret1")

	rec = s.do(http.MethodGet, "/auth/me", "", token)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"email":"a@x.com"`) {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}

	if rec = s.do(http.MethodPost, "/auth/logout", "", token); rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	rec = s.do(http.MethodGet, "/auth/me", "", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body["error"] != domain.ErrUnauthenticated.Error() {
		t.Fatalf("unexpected envelope: %v", body)
	}
}

func TestRouter_MissingSession(t *testing.T) {
	s := newServer(t)

	for _, path := range []string{"/auth/me", "/payments", "/subscriptions", "/admin/users"} {
		if rec := s.do(http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestRouter_ValidationEnvelope(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/auth/signup", `{"email":"bad","password":"1"}`, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	fields, ok := body["fields"].(map[string]any)
	if !ok || fields["email"] == nil || fields["password"] == nil {
		t.Fatalf("expected field errors, got %v", body)
	}
}

func TestRouter_OverlongPasswordIsValidationError(t *testing.T) {
	s := newServer(t)

	body := `{"email":"long@x.com","password":"` + strings.Repeat("p", 80) + `"}`
	rec := s.do(http.MethodPost, "/auth/signup", body, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	fields, _ := decodeError(t, rec)["fields"].(map[string]any)
	if fields["password"] == nil {
		t.Errorf("expected password field error, got %v", fields)
	}
}

func TestRouter_DuplicateSignupConflict(t *testing.T) {
	s := newServer(t)

	body := `{"email":"a@x.com","password":"secret1"}`
	if rec := s.do(http.MethodPost, "/auth/signup", body, ""); rec.Code != http.StatusCreated {
		t.Fatalf("first signup: %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/auth/signup", body, ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

// ---- Admin gating ----

func TestRouter_AdminRoutesGated(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	if _, err := s.app.Credentials.Create(ctx, "root@x.com", "rootpass", domain.RoleAdmin, domain.Profile{}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if rec := s.do(http.MethodPost, "/auth/signup", `{"email":"a@x.com","password":"secret1"}`, ""); rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d", rec.Code)
	}

	userToken := s.login("a@x.com", "secret1")
	rec := s.do(http.MethodGet, "/admin/users", "", userToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("standard user: expected 403, got %d", rec.Code)
	}

	adminToken := s.login("root@x.com", "rootpass")
	rec = s.do(http.MethodGet, "/admin/users", "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil || page.Total != 2 {
		t.Fatalf("expected 2 users, got %+v (%v)", page, err)
	}

	// The rejected attempt is on record with its outcome.
	user, err := s.app.Accounts.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	rec = s.do(http.MethodGet, "/admin/activity-logs?userId="+user.ID, "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("activity logs: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"outcome":"forbidden"`) || !strings.Contains(rec.Body.String(), `"action":"GET /admin/users"`) {
		t.Fatalf("forbidden attempt not logged: %s", rec.Body.String())
	}
}

func TestRouter_DeactivatedUserLosesAccess(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	if _, err := s.app.Credentials.Create(ctx, "root@x.com", "rootpass", domain.RoleAdmin, domain.Profile{}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	user, err := s.app.Credentials.Create(ctx, "a@x.com", "secret1", domain.RoleStandard, domain.Profile{})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	userToken := s.login("a@x.com", "secret1")
	adminToken := s.login("root@x.com", "rootpass")

	rec := s.do(http.MethodPut, "/admin/users/"+user.ID+"/status", `{"active":false}`, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: %d %s", rec.Code, rec.Body.String())
	}
	if rec = s.do(http.MethodGet, "/auth/me", "", userToken); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked session, got %d", rec.Code)
	}
	if rec = s.do(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret1"}`, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected disabled login to be 403, got %d", rec.Code)
	}
}

// ---- Billing without a gateway ----

func TestRouter_GatewayDisabled(t *testing.T) {
	s := newServer(t)
	if rec := s.do(http.MethodPost, "/auth/signup", `{"email":"a@x.com","password":"secret1"}`, ""); rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d", rec.Code)
	}
	token := s.login("a@x.com", "secret1")

	if rec := s.do(http.MethodPost, "/payments/intent", `{"amount":5000}`, token); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("payment intent: expected 503, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/webhooks/payment", `{}`, ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("webhook: expected 503, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/payments", "", token); rec.Code != http.StatusOK {
		t.Fatalf("payment history should not need the gateway, got %d", rec.Code)
	}
}

// ---- Operations ----

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newServer(t)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		if rec := s.do(http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
