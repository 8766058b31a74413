package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// AccountService implements ports.AccountService.
type AccountService struct {
	accounts    ports.AccountRepository
	credentials *CredentialStore
	now         Clock
	log         zerolog.Logger
}

// NewAccountService returns an AccountService.
func NewAccountService(accounts ports.AccountRepository, credentials *CredentialStore, now Clock, log zerolog.Logger) *AccountService {
	if now == nil {
		now = systemClock
	}
	return &AccountService{accounts: accounts, credentials: credentials, now: now, log: log}
}

// UpdateProfile replaces the profile and marks it complete.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, p domain.Profile) (*domain.Account, error) {
	return s.mutate(ctx, accountID, func(a *domain.Account) error {
		a.Profile = p
		a.ProfileComplete = true
		return nil
	})
}

// UpdatePreferences replaces the preference set.
func (s *AccountService) UpdatePreferences(ctx context.Context, accountID string, p domain.Preferences) (*domain.Account, error) {
	return s.mutate(ctx, accountID, func(a *domain.Account) error {
		a.Preferences = p
		return nil
	})
}

// UpdateAvatar stores a reference to an already-uploaded image.
func (s *AccountService) UpdateAvatar(ctx context.Context, accountID string, av domain.Attachment) (*domain.Account, error) {
	if strings.TrimSpace(av.URL) == "" {
		return nil, domain.NewValidationError("url", "is required")
	}
	if strings.TrimSpace(av.PublicID) == "" {
		return nil, domain.NewValidationError("public_id", "is required")
	}
	return s.mutate(ctx, accountID, func(a *domain.Account) error {
		a.Avatar = &av
		return nil
	})
}

// ChangePassword returns domain.ErrInvalidCredentials when the current
// password does not match.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, currentSessionID, oldPassword, newPassword string) error {
	ok, err := s.credentials.ChangePassword(ctx, accountID, currentSessionID, oldPassword, newPassword)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}
	s.log.Info().Str("account_id", accountID).Msg("password changed")
	return nil
}

// DeleteAccount removes the caller's own account after password re-proof.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID, password string) error {
	ok, err := s.credentials.Delete(ctx, accountID, password)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (s *AccountService) mutate(ctx context.Context, accountID string, fn func(*domain.Account) error) (*domain.Account, error) {
	a, err := updateAccount(ctx, s.accounts, accountID, s.now, fn)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return a, nil
}
