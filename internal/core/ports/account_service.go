package ports

import (
	"context"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// AccountService holds the self-service operations of a signed-in user.
type AccountService interface {
	UpdateProfile(ctx context.Context, accountID string, p domain.Profile) (*domain.Account, error)
	UpdatePreferences(ctx context.Context, accountID string, p domain.Preferences) (*domain.Account, error)
	UpdateAvatar(ctx context.Context, accountID string, a domain.Attachment) (*domain.Account, error)
	// ChangePassword keeps currentSessionID alive and revokes every other session.
	ChangePassword(ctx context.Context, accountID, currentSessionID, oldPassword, newPassword string) error
	DeleteAccount(ctx context.Context, accountID, password string) error
}

// Actor identifies who performs an admin operation and from where.
type Actor struct {
	Account *domain.Account
	Origin  domain.Origin
}

// ListUsersInput carries the admin list query.
type ListUsersInput struct {
	Role   string
	Search string
	Page   int
	Limit  int
}

// ListUsersResult is a page of accounts.
type ListUsersResult struct {
	Items      []*domain.Account
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// AdminService holds the operations reserved for administrators.
type AdminService interface {
	ListUsers(ctx context.Context, in ListUsersInput) (*ListUsersResult, error)
	GetUser(ctx context.Context, id string) (*domain.Account, error)
	ChangeRole(ctx context.Context, actor Actor, targetID string, role domain.Role) (*domain.Account, error)
	SetStatus(ctx context.Context, actor Actor, targetID string, active bool) (*domain.Account, error)
	DeleteUser(ctx context.Context, actor Actor, targetID string) error
	ActivityLogs(ctx context.Context, actorID string, limit int) ([]*domain.ActivityLogEntry, error)
}
