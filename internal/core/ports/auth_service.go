package ports

import (
	"context"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// SignupInput carries the registration form.
type SignupInput struct {
	Email    string
	Password string
	Profile  domain.Profile
}

// AuthResult is returned by signup and login; the session id is the cookie value.
type AuthResult struct {
	Account *domain.Account
	Session *domain.Session
}

// AuthService covers the unauthenticated entry points.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
	VerifyEmail(ctx context.Context, token string) (*domain.Account, error)
}

// Authorizer gates protected operations. It resolves the session token,
// loads the account, checks its role against allowed (empty = any role) and
// records the attempt.
type Authorizer interface {
	Authorize(
		ctx context.Context,
		token string,
		allowed []domain.Role,
		origin domain.Origin,
		action string,
	) (*domain.Account, *domain.Session, error)
}

// ActivityLogger records and queries the audit trail.
type ActivityLogger interface {
	Append(ctx context.Context, e *domain.ActivityLogEntry)
	Query(ctx context.Context, actorID string, limit int) ([]*domain.ActivityLogEntry, error)
}
