package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sample = `
db:
  default:
    driver: postgres
    url: jdbc:postgresql://localhost:5432/realm
    user: realm
  multi_tenant: true
  tenants: [acme, globex]
cache:
  enabled: true
  ttl: 600
  region:
    com.example.Account: 300
    com.example.Account.roles: 60
server:
  addr: ":8080"
`

func TestParseFlattensNestedMaps(t *testing.T) {
	s, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := s.Get("db.default.url"); got != "jdbc:postgresql://localhost:5432/realm" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := s.Get("cache.region.com.example.Account"); got != "300" {
		t.Fatalf("unexpected region value %q", got)
	}
	if diff := cmp.Diff([]string{"acme", "globex"}, s.GetList("db.tenants")); diff != "" {
		t.Fatalf("tenants mismatch (-want +got):\n%s", diff)
	}
	want := []string{"cache.region.com.example.Account", "cache.region.com.example.Account.roles"}
	if diff := cmp.Diff(want, s.Names("cache.region.")); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestTypedAccessors(t *testing.T) {
	s, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, err := s.GetBool("db.multi_tenant", false); err != nil || !v {
		t.Fatalf("GetBool: %v %v", v, err)
	}
	if v, err := s.GetBool("missing", true); err != nil || !v {
		t.Fatalf("GetBool default: %v %v", v, err)
	}
	if v, err := s.GetDuration("cache.ttl", 0); err != nil || v != 10*time.Minute {
		t.Fatalf("GetDuration: %v %v", v, err)
	}
	if _, err := s.With("cache.ttl", "soon").GetDuration("cache.ttl", 0); err == nil {
		t.Fatalf("expected duration error")
	}
	if _, err := s.With("db.multi_tenant", "perhaps").GetBool("db.multi_tenant", false); err == nil {
		t.Fatalf("expected bool error")
	}
	if v, err := s.With("server.rate.burst", "20").GetInt("server.rate.burst", 5); err != nil || v != 20 {
		t.Fatalf("GetInt: %v %v", v, err)
	}
}

func TestWithEnvOverlay(t *testing.T) {
	s, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s = s.WithEnv([]string{
		"REALM_DB_DEFAULT_URL=postgres://db/realm",
		"REALM_DB_DEFAULT_PASSWORD=secret",
		"REALM_DB__ACME__URL=postgres://acme/realm",
		"REALM_UNRELATED=ignored",
		"PATH=/usr/bin",
	})
	if got := s.Get("db.default.url"); got != "postgres://db/realm" {
		t.Fatalf("env did not override file: %q", got)
	}
	if got := s.Get("db.default.password"); got != "secret" {
		t.Fatalf("known key not set from env: %q", got)
	}
	if got := s.Get("db.acme.url"); got != "postgres://acme/realm" {
		t.Fatalf("double underscore key not mapped: %q", got)
	}
	if _, ok := s.Lookup("unrelated"); ok {
		t.Fatalf("unexpected key from env")
	}
}

func TestWithDoesNotMutate(t *testing.T) {
	base := New(map[string]string{"a": "1"})
	next := base.With("a", "2")
	if base.Get("a") != "1" || next.Get("a") != "2" {
		t.Fatalf("With mutated original: %q %q", base.Get("a"), next.Get("a"))
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realm.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("REALM_LOG_LEVEL", "debug")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Get("log.level") != "debug" || s.Get("db.default.user") != "realm" {
		t.Fatalf("unexpected settings: %v", s.Names(""))
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("server.grpc_addr"); got != "REALM_SERVER_GRPC_ADDR" {
		t.Fatalf("unexpected env name %s", got)
	}
}
