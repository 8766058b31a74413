package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// Password length bounds. bcrypt rejects inputs longer than 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

var errPasswordMismatch = errors.New("password mismatch")

// SessionRevoker removes the sessions of an account.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, accountID, keepID string) (int64, error)
}

// CredentialStore hashes, stores and verifies passwords.
type CredentialStore struct {
	accounts  ports.AccountRepository
	sessions  SessionRevoker
	cost      int
	dummyHash []byte
	validate  *validator.Validate
	now       Clock
	log       zerolog.Logger
}

// NewCredentialStore returns a CredentialStore hashing with the given bcrypt
// cost. A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewCredentialStore(accounts ports.AccountRepository, sessions SessionRevoker, cost int, now Clock, log zerolog.Logger) *CredentialStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if now == nil {
		now = systemClock
	}
	// Compared against when the email is unknown so both paths pay for one hash.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &CredentialStore{
		accounts:  accounts,
		sessions:  sessions,
		cost:      cost,
		dummyHash: dummy,
		validate:  validator.New(),
		now:       now,
		log:       log,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a new active account. An empty role means standard.
func (s *CredentialStore) Create(ctx context.Context, email, password string, role domain.Role, profile domain.Profile) (*domain.Account, error) {
	email = NormalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return nil, err
	}
	if err := checkPassword("password", password); err != nil {
		return nil, err
	}
	if role == "" {
		role = domain.RoleStandard
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of standard, admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	a := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		Profile:      profile,
		Preferences:  domain.Preferences{EmailNotifications: true},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Verify checks an email/password pair. Unknown emails and wrong passwords
// both return domain.ErrInvalidCredentials after one bcrypt comparison.
func (s *CredentialStore) Verify(ctx context.Context, email, password string) (*domain.Account, error) {
	a, err := s.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !a.Active {
		return nil, domain.ErrAccountDisabled
	}
	return a, nil
}

// ChangePassword replaces the password when oldPassword matches. It returns
// false on mismatch. On success every session except keepSessionID is revoked.
func (s *CredentialStore) ChangePassword(ctx context.Context, accountID, keepSessionID, oldPassword, newPassword string) (bool, error) {
	if err := checkPassword("new_password", newPassword); err != nil {
		return false, err
	}
	var newHash []byte
	_, err := updateAccount(ctx, s.accounts, accountID, s.now, func(a *domain.Account) error {
		if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(oldPassword)) != nil {
			return errPasswordMismatch
		}
		if newHash == nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			newHash = hash
		}
		a.PasswordHash = string(newHash)
		return nil
	})
	if errors.Is(err, errPasswordMismatch) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("change password: %w", err)
	}
	if _, err := s.sessions.RevokeAll(ctx, accountID, keepSessionID); err != nil {
		return true, err
	}
	return true, nil
}

// SetPassword overwrites the password without proof of the old one. It is
// reserved for operator tooling.
func (s *CredentialStore) SetPassword(ctx context.Context, a *domain.Account, password string) error {
	if err := checkPassword("password", password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = string(hash)
	a.UpdatedAt = s.now()
	return s.accounts.Update(ctx, a)
}

// Delete removes the account after re-checking its password. All sessions are
// revoked before the account row is removed. Returns false on mismatch.
func (s *CredentialStore) Delete(ctx context.Context, accountID, password string) (bool, error) {
	a, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return false, nil
	}
	if _, err := s.sessions.RevokeAll(ctx, accountID, ""); err != nil {
		return false, err
	}
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}
	s.log.Info().Str("account_id", accountID).Msg("account deleted by owner")
	return true, nil
}

func (s *CredentialStore) checkEmail(email string) error {
	if email == "" {
		return domain.NewValidationError("email", "is required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return domain.NewValidationError("email", "must be a valid email address")
	}
	return nil
}

func checkPassword(field, password string) error {
	if len(password) < MinPasswordLength {
		return domain.NewValidationError(field, fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return domain.NewValidationError(field, fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}
