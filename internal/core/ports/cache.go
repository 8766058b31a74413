package ports

import "context"

// DedupCache is a best-effort fast path in front of the webhook ledger.
type DedupCache interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// VerificationSender delivers email verification tokens.
type VerificationSender interface {
	SendVerification(ctx context.Context, email, token string) error
}

// Dispatcher runs jobs asynchronously, serially per key.
type Dispatcher interface {
	Enqueue(key string, job func(ctx context.Context))
}
