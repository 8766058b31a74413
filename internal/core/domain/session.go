package domain

import "time"

// SessionTTL is fixed; sessions are never renewed.
const SessionTTL = 7 * 24 * time.Hour

// Session is a time-bounded authentication proof tied to one account.
type Session struct {
	ID        string    `json:"-" bson:"_id"`
	AccountID string    `json:"account_id" bson:"account_id"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
