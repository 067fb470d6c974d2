package ids

import (
	"testing"
	"time"
)

func TestNewIsSortable(t *testing.T) {
	a := New()
	b := New()
	if a >= b {
		t.Fatalf("expected %s < %s", a, b)
	}
}

func TestAtRoundTripsTime(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got, ok := Time(At(ts))
	if !ok {
		t.Fatalf("expected parseable id")
	}
	if !got.Equal(ts) {
		t.Fatalf("expected %v, got %v", ts, got)
	}
	if _, ok := Time("not-an-id"); ok {
		t.Fatalf("expected invalid id to fail")
	}
}
