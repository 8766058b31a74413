package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

const sessionTokenBytes = 32

// SessionManager issues and resolves opaque session tokens.
type SessionManager struct {
	repo ports.SessionRepository
	now  Clock
	log  zerolog.Logger
}

// NewSessionManager returns a SessionManager. A nil clock uses the system clock.
func NewSessionManager(repo ports.SessionRepository, now Clock, log zerolog.Logger) *SessionManager {
	if now == nil {
		now = systemClock
	}
	return &SessionManager{repo: repo, now: now, log: log}
}

// Issue creates a session for accountID that expires after domain.SessionTTL.
func (m *SessionManager) Issue(ctx context.Context, accountID string) (*domain.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	now := m.now()
	s := &domain.Session{
		ID:        token,
		AccountID: accountID,
		ExpiresAt: now.Add(domain.SessionTTL),
		CreatedAt: now,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return s, nil
}

// Resolve looks a token up. An expired session is deleted and reported as
// domain.ErrSessionExpired.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}
	s, err := m.repo.Find(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		if err := m.repo.Delete(ctx, token); err != nil {
			m.log.Warn().Err(err).Str("account_id", s.AccountID).Msg("failed to purge expired session")
		}
		return nil, domain.ErrSessionExpired
	}
	return s, nil
}

// Revoke deletes a single session. Unknown tokens are not an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.repo.Delete(ctx, token); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAll deletes every session of the account except keepID.
func (m *SessionManager) RevokeAll(ctx context.Context, accountID, keepID string) (int64, error) {
	n, err := m.repo.DeleteByAccount(ctx, accountID, keepID)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	if n > 0 {
		m.log.Info().Str("account_id", accountID).Int64("revoked", n).Msg("sessions revoked")
	}
	return n, nil
}

func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
