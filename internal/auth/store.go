package auth

import "context"

// AccountFinder is the read access the verifier and resolver need from the backing store.
// Implementations return ErrNotFound when no account has the code, and an error wrapping
// ErrBackingStoreUnavailable for any other failure.
type AccountFinder interface {
	FindAccountByCode(ctx context.Context, code string) (*Account, error)
}

// AuditSink records rejected credential checks for incident review.
type AuditSink interface {
	LogRejectedAttempt(ctx context.Context, code string)
}
