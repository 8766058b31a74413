package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2pbal/account-billing/internal/core/domain"
)

const (
	verificationPurpose = "verify_email"
	defaultVerifyTTL    = 24 * time.Hour
)

// VerificationTokens signs and checks email verification tokens (HS256).
type VerificationTokens struct {
	secret []byte
	ttl    time.Duration
	now    Clock
}

// NewVerificationTokens returns a token signer. A non-positive ttl means 24h.
func NewVerificationTokens(secret string, ttl time.Duration, now Clock) *VerificationTokens {
	if ttl <= 0 {
		ttl = defaultVerifyTTL
	}
	if now == nil {
		now = systemClock
	}
	return &VerificationTokens{secret: []byte(secret), ttl: ttl, now: now}
}

type verificationClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Issue returns a signed token binding accountID to email.
func (v *VerificationTokens) Issue(accountID, email string) (string, error) {
	now := v.now()
	claims := verificationClaims{
		Email:   email,
		Purpose: verificationPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(v.secret)
}

// Parse validates token and returns the account id and email it was issued for.
func (v *VerificationTokens) Parse(token string) (accountID, email string, err error) {
	claims := &verificationClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil || !tkn.Valid {
		return "", "", domain.ErrInvalidToken
	}
	if claims.Purpose != verificationPurpose || claims.Subject == "" {
		return "", "", errors.Join(domain.ErrInvalidToken, errors.New("unexpected token purpose"))
	}
	return claims.Subject, claims.Email, nil
}
