package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

var errAlreadyVerified = errors.New("email already verified")

// AuthService implements signup, login, logout and email verification.
type AuthService struct {
	credentials *CredentialStore
	sessions    *SessionManager
	accounts    ports.AccountRepository
	tokens      *VerificationTokens
	sender      ports.VerificationSender
	now         Clock
	log         zerolog.Logger
}

// NewAuthService wires an AuthService. sender may be nil, in which case no
// verification token is sent at signup.
func NewAuthService(
	credentials *CredentialStore,
	sessions *SessionManager,
	accounts ports.AccountRepository,
	tokens *VerificationTokens,
	sender ports.VerificationSender,
	now Clock,
	log zerolog.Logger,
) *AuthService {
	if now == nil {
		now = systemClock
	}
	return &AuthService{
		credentials: credentials,
		sessions:    sessions,
		accounts:    accounts,
		tokens:      tokens,
		sender:      sender,
		now:         now,
		log:         log,
	}
}

// Signup creates a standard account and signs it in.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	account, err := s.credentials.Create(ctx, in.Email, in.Password, domain.RoleStandard, in.Profile)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Issue(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	s.sendVerification(ctx, account)

	s.log.Info().Str("account_id", account.ID).Msg("account registered")
	return &ports.AuthResult{Account: account, Session: sess}, nil
}

// Login verifies credentials, stamps the last-login time and issues a session.
// The stamp only lands while the verified password hash is current and the
// account active; if either changed since the check, the credentials are
// verified again against the fresh record.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	var account *domain.Account
	for attempt := 1; ; attempt++ {
		a, err := s.credentials.Verify(ctx, email, password)
		if err != nil {
			return nil, err
		}
		err = s.accounts.TouchLastLogin(ctx, a, s.now())
		if err == nil {
			account = a
			break
		}
		if !errors.Is(err, domain.ErrStaleAccount) || attempt == maxAccountWriteAttempts {
			return nil, fmt.Errorf("record login: %w", err)
		}
	}

	sess, err := s.sessions.Issue(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Account: account, Session: sess}, nil
}

// Logout revokes the session. Missing tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// VerifyEmail marks the account verified when token is valid and was issued
// for the account's current email.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.Account, error) {
	if s.tokens == nil {
		return nil, domain.ErrInvalidToken
	}
	accountID, email, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	account, err := updateAccount(ctx, s.accounts, accountID, s.now, func(a *domain.Account) error {
		if a.Email != email {
			return domain.ErrInvalidToken
		}
		if a.Verified {
			return errAlreadyVerified
		}
		a.Verified = true
		return nil
	})
	if errors.Is(err, errAlreadyVerified) {
		return s.accounts.FindByID(ctx, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	return account, nil
}

func (s *AuthService) sendVerification(ctx context.Context, account *domain.Account) {
	if s.tokens == nil || s.sender == nil {
		return
	}
	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to sign verification token")
		return
	}
	if err := s.sender.SendVerification(ctx, account.Email, token); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to send verification token")
	}
}
