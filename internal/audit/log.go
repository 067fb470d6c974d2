// Package audit writes structured audit records for security relevant events.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
	"github.com/Arthur-Pio/axelor-open-platform/internal/ids"
	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
)

// Event names.
const (
	EventAuthFailure = "auth.failure"
	EventAuthSuccess = "auth.success"
	EventProvision   = "account.provision"
)

type ctxKey string

const (
	requestIDKey  ctxKey = "audit_request_id"
	remoteAddrKey ctxKey = "audit_remote_addr"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithRemoteAddr attaches the client address to the context for audit logging.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ctx
	}
	return context.WithValue(ctx, remoteAddrKey, addr)
}

func stringFromContext(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// Logger writes audit records through zerolog.
type Logger struct {
	logger zerolog.Logger
	now    func() time.Time
}

var _ auth.AuditSink = (*Logger)(nil)

// NewLogger returns a Logger on the "audit" component logger.
func NewLogger() *Logger {
	return NewLoggerWith(obs.WithComponent("audit"))
}

// NewLoggerWith returns a Logger writing to l.
func NewLoggerWith(l zerolog.Logger) *Logger {
	return &Logger{
		logger: l.With().Str("log_type", "audit").Logger(),
		now:    time.Now,
	}
}

// LogEvent writes an audit entry enriched with request and identity context.
func (l *Logger) LogEvent(ctx context.Context, event string, fields map[string]string) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	e := l.logger.Info().
		Str("event_id", ids.At(l.now())).
		Time("ts", l.now().UTC()).
		Str("event", event)
	if rid := stringFromContext(ctx, requestIDKey); rid != "" {
		e = e.Str("request_id", rid)
	}
	if addr := stringFromContext(ctx, remoteAddrKey); addr != "" {
		e = e.Str("remote_addr", addr)
	}
	if accepted, ok := auth.AcceptedFromContext(ctx); ok {
		e = e.Str("actor", accepted.Code)
	}
	dict := zerolog.Dict()
	for k, v := range fields {
		dict = dict.Str(k, v)
	}
	e.Dict("fields", dict).Msg("audit event")
	return nil
}

// LogRejectedAttempt records a failed credential check for code. The reason is deliberately
// not part of the record.
func (l *Logger) LogRejectedAttempt(ctx context.Context, code string) {
	_ = l.LogEvent(ctx, EventAuthFailure, map[string]string{"code": code, "result": "failure"})
}

// LogAccepted records a successful credential check.
func (l *Logger) LogAccepted(ctx context.Context, code string) {
	_ = l.LogEvent(ctx, EventAuthSuccess, map[string]string{"code": code, "result": "success"})
}
