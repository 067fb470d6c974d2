package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
	"github.com/Arthur-Pio/axelor-open-platform/internal/ids"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := buf.Bytes()
	if len(line) == 0 {
		t.Fatal("expected log output")
	}
	var entry map[string]any
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	return entry
}

func TestLogEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWith(zerolog.New(&buf))
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithRemoteAddr(ctx, "10.0.0.7")
	ctx = auth.ContextWithAccepted(ctx, auth.Accepted{Code: "admin"})

	if err := l.LogEvent(ctx, "audit.test", map[string]string{"foo": "bar"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	entry := decode(t, &buf)
	if entry["log_type"] != "audit" {
		t.Fatalf("unexpected log type: %v", entry["log_type"])
	}
	if entry["event"] != "audit.test" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" || entry["remote_addr"] != "10.0.0.7" {
		t.Fatalf("unexpected request context: %v", entry)
	}
	if entry["actor"] != "admin" {
		t.Fatalf("unexpected actor: %v", entry["actor"])
	}
	id, _ := entry["event_id"].(string)
	if ts, ok := ids.Time(id); !ok || !ts.Equal(fixed) {
		t.Fatalf("event id not derived from clock: %q", id)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["foo"] != "bar" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	l := NewLoggerWith(zerolog.Nop())
	if err := l.LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLogRejectedAttempt(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWith(zerolog.New(&buf))

	l.LogRejectedAttempt(WithRequestID(context.Background(), "r-1"), "alice")

	entry := decode(t, &buf)
	if entry["event"] != EventAuthFailure {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	fields := entry["fields"].(map[string]any)
	if fields["code"] != "alice" || fields["result"] != "failure" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, leaked := fields["reason"]; leaked {
		t.Fatalf("rejection reason must not be audited")
	}
}

func TestWithRequestIDIgnoresBlank(t *testing.T) {
	ctx := context.Background()
	if WithRequestID(ctx, " ") != ctx || WithRemoteAddr(ctx, "") != ctx {
		t.Fatalf("blank values must not be attached")
	}
}
