package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
)

var tracer = otel.Tracer("github.com/Arthur-Pio/axelor-open-platform/internal/auth")

// rejection reasons, internal only
const (
	reasonEmptyCode = "empty_code"
	reasonUnknown   = "unknown"
	reasonInactive  = "inactive"
	reasonMismatch  = "mismatch"
)

// Verifier checks submitted credentials against the backing store.
type Verifier struct {
	accounts AccountFinder
	matcher  Matcher
	audit    AuditSink
	logger   zerolog.Logger
	now      func() time.Time
}

// VerifierOption configures Verifier behavior.
type VerifierOption func(*Verifier) error

// WithMatcher replaces the default matcher chain.
func WithMatcher(m Matcher) VerifierOption {
	return func(v *Verifier) error {
		if m == nil {
			return errors.New("auth: matcher is nil")
		}
		v.matcher = m
		return nil
	}
}

// WithAuditSink sets where rejected attempts are recorded.
func WithAuditSink(sink AuditSink) VerifierOption {
	return func(v *Verifier) error {
		if sink != nil {
			v.audit = sink
		}
		return nil
	}
}

// WithVerifierLogger overrides the component logger.
func WithVerifierLogger(l zerolog.Logger) VerifierOption {
	return func(v *Verifier) error {
		v.logger = l
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) VerifierOption {
	return func(v *Verifier) error {
		if fn != nil {
			v.now = fn
		}
		return nil
	}
}

// NewVerifier constructs a Verifier with the default matcher chain.
func NewVerifier(accounts AccountFinder, opts ...VerifierOption) (*Verifier, error) {
	if accounts == nil {
		return nil, errors.New("auth: account finder is required")
	}
	logger := obs.WithComponent("auth")
	v := &Verifier{
		accounts: accounts,
		matcher:  DefaultMatcher(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	if v.audit == nil {
		v.audit = logSink{logger: v.logger}
	}
	return v, nil
}

// Verify checks secret against the stored secret of the account identified by code.
// Unknown, inactive and mismatched credentials all fail with ErrIncorrectCredentials.
// The secret buffer is wiped before Verify returns.
func (v *Verifier) Verify(ctx context.Context, code string, secret Secret) (Accepted, error) {
	defer secret.Wipe()

	ctx, span := tracer.Start(ctx, "auth.Verify", trace.WithAttributes(attribute.String("realm.code", code)))
	defer span.End()

	if code == "" {
		return v.reject(ctx, span, code, reasonEmptyCode)
	}

	account, err := v.accounts.FindAccountByCode(ctx, code)
	switch {
	case errors.Is(err, ErrNotFound):
		return v.reject(ctx, span, code, reasonUnknown)
	case err != nil:
		obs.ObserveCredentialCheck("error", "")
		span.RecordError(err)
		span.SetStatus(codes.Error, "account lookup failed")
		v.logger.Error().Err(err).Str("code", code).Msg("account lookup failed")
		return Accepted{}, StoreUnavailable(err)
	case account == nil:
		return v.reject(ctx, span, code, reasonUnknown)
	}

	if !account.IsActive(v.now()) {
		return v.reject(ctx, span, code, reasonInactive)
	}
	if !v.matcher.Matches(secret.Bytes(), account.Password) {
		return v.reject(ctx, span, code, reasonMismatch)
	}

	obs.ObserveCredentialCheck("accepted", "")
	return Accepted{Code: code}, nil
}

func (v *Verifier) reject(ctx context.Context, span trace.Span, code, reason string) (Accepted, error) {
	obs.ObserveCredentialCheck("rejected", reason)
	span.SetStatus(codes.Error, "rejected")
	v.logger.Debug().Str("code", code).Str("reason", reason).Msg("credential check rejected")
	v.audit.LogRejectedAttempt(ctx, code)
	return Accepted{}, ErrIncorrectCredentials
}

type logSink struct {
	logger zerolog.Logger
}

func (s logSink) LogRejectedAttempt(_ context.Context, code string) {
	s.logger.Error().Str("code", code).Msg("password authentication failed")
}
