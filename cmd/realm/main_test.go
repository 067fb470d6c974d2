package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/Arthur-Pio/axelor-open-platform/internal/audit"
	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
)

func TestReadSecretTakesFirstLine(t *testing.T) {
	secret, err := readSecret(strings.NewReader("s3cret\r\nignored\n"))
	if err != nil {
		t.Fatalf("readSecret: %v", err)
	}
	defer secret.Wipe()
	if got := string(secret.Bytes()); got != "s3cret" {
		t.Fatalf("secret = %q", got)
	}
}

func TestReadSecretWithoutNewline(t *testing.T) {
	secret, err := readSecret(strings.NewReader("pässword"))
	if err != nil {
		t.Fatalf("readSecret: %v", err)
	}
	if got := string(secret.Bytes()); got != "pässword" {
		t.Fatalf("secret = %q", got)
	}
}

func TestReadSecretRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "\n", "\r\n"} {
		if _, err := readSecret(strings.NewReader(in)); !errors.Is(err, errEmptySecret) {
			t.Fatalf("readSecret(%q) err = %v", in, err)
		}
	}
}

func TestHashFromStdinMatches(t *testing.T) {
	hash, err := hashFromStdin(strings.NewReader("admin\n"))
	if err != nil {
		t.Fatalf("hashFromStdin: %v", err)
	}
	if !auth.DefaultMatcher().Matches([]byte("admin"), hash) {
		t.Fatalf("hash %q does not match", hash)
	}
}

func TestParseDate(t *testing.T) {
	if d, err := parseDate(""); err != nil || d != nil {
		t.Fatalf("parseDate(\"\") = %v, %v", d, err)
	}
	d, err := parseDate("2026-03-01")
	if err != nil {
		t.Fatalf("parseDate: %v", err)
	}
	if got := d.Format("2006-01-02"); got != "2026-03-01" {
		t.Fatalf("date = %s", got)
	}
	if _, err := parseDate("03/01/2026"); err == nil {
		t.Fatalf("expected error for bad date")
	}
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	var got []string
	for _, c := range root.Commands() {
		for _, sub := range c.Commands() {
			got = append(got, c.Name()+" "+sub.Name())
		}
		if !c.HasSubCommands() {
			got = append(got, c.Name())
		}
	}
	want := []string{
		"account add", "account archive", "account assign", "account block", "account passwd",
		"authz",
		"group add", "group rm",
		"migrate down", "migrate seed", "migrate status", "migrate up",
		"serve",
		"verify",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("commands (-want +got):\n%s", diff)
	}
}

func TestVerifyRequiresCode(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"verify"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected argument error")
	}
}

func TestLogProvisionWritesAuditEvent(t *testing.T) {
	var buf bytes.Buffer
	logProvision(context.Background(), audit.NewLoggerWith(zerolog.New(&buf)), "alice", "passwd")

	var entry struct {
		Event  string            `json:"event"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode audit entry: %v (%s)", err, buf.String())
	}
	if entry.Event != audit.EventProvision {
		t.Fatalf("event = %q", entry.Event)
	}
	if diff := cmp.Diff(map[string]string{"code": "alice", "op": "passwd"}, entry.Fields); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}
}
