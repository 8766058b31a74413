package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

const (
	defaultUsersLimit = 20
	maxUsersLimit     = 100
)

// Admin action labels written to the activity log.
const (
	ActionChangeRole = "admin.change_role"
	ActionSetStatus  = "admin.set_status"
	ActionDeleteUser = "admin.delete_user"
)

// AdminService implements ports.AdminService.
type AdminService struct {
	accounts ports.AccountRepository
	sessions SessionRevoker
	activity ports.ActivityLogger
	now      Clock
	log      zerolog.Logger
}

// NewAdminService returns an AdminService.
func NewAdminService(
	accounts ports.AccountRepository,
	sessions SessionRevoker,
	activity ports.ActivityLogger,
	now Clock,
	log zerolog.Logger,
) *AdminService {
	if now == nil {
		now = systemClock
	}
	return &AdminService{accounts: accounts, sessions: sessions, activity: activity, now: now, log: log}
}

// ListUsers returns a page of accounts. Limit defaults to 20 and is capped at 100.
func (s *AdminService) ListUsers(ctx context.Context, in ports.ListUsersInput) (*ports.ListUsersResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultUsersLimit
	}
	if limit > maxUsersLimit {
		limit = maxUsersLimit
	}
	role := domain.Role(in.Role)
	if role != "" && !role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of standard, admin")
	}

	items, total, err := s.accounts.List(ctx, ports.ListAccountsFilter{
		Role:   role,
		Search: in.Search,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	return &ports.ListUsersResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// GetUser returns a single account.
func (s *AdminService) GetUser(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// ChangeRole sets the target's role.
func (s *AdminService) ChangeRole(ctx context.Context, actor ports.Actor, targetID string, role domain.Role) (*domain.Account, error) {
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of standard, admin")
	}
	var updated *domain.Account
	err := s.audited(ctx, actor, ActionChangeRole, targetID, map[string]any{"role": string(role)}, func() error {
		if targetID == actor.Account.ID {
			return domain.ErrSelfModification
		}
		a, err := updateAccount(ctx, s.accounts, targetID, s.now, func(a *domain.Account) error {
			if a.Role == role {
				return domain.ErrRoleUnchanged
			}
			a.Role = role
			return nil
		})
		if err != nil {
			return fmt.Errorf("change role: %w", err)
		}
		updated = a
		return nil
	})
	return updated, err
}

// SetStatus activates or deactivates the target. Deactivation revokes all
// of the target's sessions.
func (s *AdminService) SetStatus(ctx context.Context, actor ports.Actor, targetID string, active bool) (*domain.Account, error) {
	var updated *domain.Account
	err := s.audited(ctx, actor, ActionSetStatus, targetID, map[string]any{"active": active}, func() error {
		if targetID == actor.Account.ID {
			return domain.ErrSelfModification
		}
		a, err := updateAccount(ctx, s.accounts, targetID, s.now, func(a *domain.Account) error {
			if a.Active == active {
				return domain.ErrStatusUnchanged
			}
			a.Active = active
			return nil
		})
		if err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		if !active {
			if _, err := s.sessions.RevokeAll(ctx, a.ID, ""); err != nil {
				return err
			}
		}
		updated = a
		return nil
	})
	return updated, err
}

// DeleteUser revokes the target's sessions, then removes the account.
func (s *AdminService) DeleteUser(ctx context.Context, actor ports.Actor, targetID string) error {
	return s.audited(ctx, actor, ActionDeleteUser, targetID, nil, func() error {
		if targetID == actor.Account.ID {
			return domain.ErrSelfModification
		}
		if _, err := s.accounts.FindByID(ctx, targetID); err != nil {
			return err
		}
		if _, err := s.sessions.RevokeAll(ctx, targetID, ""); err != nil {
			return err
		}
		if err := s.accounts.Delete(ctx, targetID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// ActivityLogs queries the audit trail.
func (s *AdminService) ActivityLogs(ctx context.Context, actorID string, limit int) ([]*domain.ActivityLogEntry, error) {
	return s.activity.Query(ctx, actorID, limit)
}

// audited runs op and appends an outcome entry describing its result.
func (s *AdminService) audited(
	ctx context.Context,
	actor ports.Actor,
	action, targetID string,
	detail map[string]any,
	op func() error,
) error {
	err := op()

	outcome := domain.OutcomeSucceeded
	if err != nil {
		outcome = domain.OutcomeFailed
	}
	e := entryFor(actor.Account, action, outcome, actor.Origin)
	e.TargetType = "account"
	e.TargetID = targetID
	for k, v := range detail {
		e.Detail[k] = v
	}
	if err != nil {
		e.Detail["error"] = err.Error()
	}
	s.activity.Append(ctx, e)

	if err == nil {
		s.log.Info().
			Str("admin_id", actor.Account.ID).
			Str("action", action).
			Str("target_id", targetID).
			Msg("admin action applied")
	}
	return err
}
