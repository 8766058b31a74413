package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = fmt.Errorf("%w: account disabled", ErrForbidden)

	ErrNotFound             = errors.New("not found")
	ErrAccountNotFound      = fmt.Errorf("account %w", ErrNotFound)
	ErrSessionNotFound      = fmt.Errorf("session %w", ErrNotFound)
	ErrPaymentNotFound      = fmt.Errorf("payment %w", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("subscription %w", ErrNotFound)
	ErrEventNotFound        = fmt.Errorf("webhook event %w", ErrNotFound)

	ErrSessionExpired = errors.New("session expired")

	ErrConflict             = errors.New("conflict")
	ErrEmailTaken           = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrRoleUnchanged        = fmt.Errorf("%w: account already has this role", ErrConflict)
	ErrStatusUnchanged      = fmt.Errorf("%w: account already has this status", ErrConflict)
	ErrPlanUnchanged        = fmt.Errorf("%w: subscription already on this price", ErrConflict)
	ErrSubscriptionTerminal = fmt.Errorf("%w: subscription is no longer active", ErrConflict)
	ErrDuplicatePayment     = fmt.Errorf("%w: payment intent already recorded", ErrConflict)
	ErrSelfModification     = fmt.Errorf("%w: admins cannot change their own account here", ErrConflict)
	ErrStaleAccount         = fmt.Errorf("%w: account was modified concurrently", ErrConflict)

	ErrSignature         = errors.New("webhook signature verification failed")
	ErrInvalidToken      = errors.New("invalid or expired verification token")
	ErrGatewayDisabled   = errors.New("payment gateway not configured")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError carries field-level detail for rejected input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// GatewayError wraps a failure reported by, or while talking to, the payment gateway.
// Callers must not assume the remote mutation happened.
type GatewayError struct {
	Op        string
	Retryable bool
	Timeout   bool
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
