package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func newTestResolver(t *testing.T, accounts AccountFinder, opts ...ResolverOption) *Resolver {
	t.Helper()
	opts = append([]ResolverOption{WithResolverLogger(zerolog.New(io.Discard))}, opts...)
	r, err := NewResolver(accounts, opts...)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestResolveAuthorizationReturnsGroupRole(t *testing.T) {
	r := newTestResolver(t, newMemAccounts(aliceFixture(t)))

	first, ok, err := r.ResolveAuthorization(context.Background(), "alice")
	if err != nil || !ok {
		t.Fatalf("ResolveAuthorization: ok=%v err=%v", ok, err)
	}
	want := AuthorizationInfo{Code: "alice", Roles: []string{"ADMIN"}}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("unexpected info (-want +got):\n%s", diff)
	}
	if !first.HasRole("ADMIN") || first.HasRole("USER") {
		t.Fatalf("HasRole mismatch: %+v", first)
	}

	second, _, _ := r.ResolveAuthorization(context.Background(), "alice")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("resolution not repeatable (-first +second):\n%s", diff)
	}
}

func TestResolveAuthorizationWithoutGroup(t *testing.T) {
	r := newTestResolver(t, newMemAccounts(&Account{Code: "bob", Password: "x"}))

	info, ok, err := r.ResolveAuthorization(context.Background(), "bob")
	if err != nil || !ok {
		t.Fatalf("ResolveAuthorization: ok=%v err=%v", ok, err)
	}
	if info.Roles == nil || len(info.Roles) != 0 {
		t.Fatalf("expected empty non-nil roles, got %#v", info.Roles)
	}
}

func TestResolveAuthorizationIgnoresAccountState(t *testing.T) {
	r := newTestResolver(t, newMemAccounts(&Account{Code: "old", Blocked: true, Group: &Group{Code: "USER"}}))

	info, ok, err := r.ResolveAuthorization(context.Background(), "old")
	if err != nil || !ok || !info.HasRole("USER") {
		t.Fatalf("blocked accounts still resolve: info=%+v ok=%v err=%v", info, ok, err)
	}
}

func TestResolveAuthorizationEmpty(t *testing.T) {
	r := newTestResolver(t, newMemAccounts(aliceFixture(t)))

	for _, code := range []string{"ghost", ""} {
		info, ok, err := r.ResolveAuthorization(context.Background(), code)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", code, err)
		}
		if ok {
			t.Fatalf("%q: expected empty result, got %+v", code, info)
		}
	}
}

func TestResolveAuthorizationStoreFault(t *testing.T) {
	accounts := newMemAccounts(aliceFixture(t))
	accounts.err = errors.New("timeout")
	r := newTestResolver(t, accounts)

	_, ok, err := r.ResolveAuthorization(context.Background(), "alice")
	if ok {
		t.Fatalf("expected no result on store fault")
	}
	if !errors.Is(err, ErrBackingStoreUnavailable) {
		t.Fatalf("expected ErrBackingStoreUnavailable, got %v", err)
	}
}

func TestResolveAuthorizationCachesAndInvalidates(t *testing.T) {
	accounts := newMemAccounts(aliceFixture(t))
	c := newMemCache()
	r := newTestResolver(t, accounts, WithCache(c, time.Minute))
	ctx := context.Background()

	if _, _, err := r.ResolveAuthorization(ctx, "alice"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, _, err := r.ResolveAuthorization(ctx, "alice"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if accounts.lookups != 1 {
		t.Fatalf("expected one store lookup, got %d", accounts.lookups)
	}

	accounts.accounts["alice"].Group = &Group{Code: "USER"}
	r.Invalidate(ctx, "alice")
	info, _, _ := r.ResolveAuthorization(ctx, "alice")
	if accounts.lookups != 2 {
		t.Fatalf("expected store lookup after invalidate, got %d", accounts.lookups)
	}
	if !info.HasRole("USER") {
		t.Fatalf("expected refreshed role, got %+v", info)
	}
}

func TestResolveAuthorizationDoesNotCacheEmpty(t *testing.T) {
	accounts := newMemAccounts()
	c := newMemCache()
	r := newTestResolver(t, accounts, WithCache(c, time.Minute))

	_, _, _ = r.ResolveAuthorization(context.Background(), "ghost")
	if len(c.entries) != 0 {
		t.Fatalf("empty result must not be cached: %v", c.entries)
	}
}

func TestResolveAuthorizationDiscardsForeignCacheEntry(t *testing.T) {
	accounts := newMemAccounts(aliceFixture(t))
	c := newMemCache()
	c.entries[defaultCachePrefix+"alice"] = []byte(`{"code":"mallory","roles":["ROOT"]}`)
	r := newTestResolver(t, accounts, WithCache(c, time.Minute))

	info, ok, err := r.ResolveAuthorization(context.Background(), "alice")
	if err != nil || !ok {
		t.Fatalf("ResolveAuthorization: ok=%v err=%v", ok, err)
	}
	if info.HasRole("ROOT") || !info.HasRole("ADMIN") {
		t.Fatalf("foreign cache entry leaked: %+v", info)
	}
}

func TestResolveAuthorizationTenantScopedKeys(t *testing.T) {
	type tenantKey struct{}
	accounts := newMemAccounts(aliceFixture(t))
	c := newMemCache()
	r := newTestResolver(t, accounts,
		WithCache(c, time.Minute),
		WithCacheKey(func(ctx context.Context, code string) string {
			tenant, _ := ctx.Value(tenantKey{}).(string)
			return "realm:" + tenant + ":authz:" + code
		}),
	)

	ctx := context.WithValue(context.Background(), tenantKey{}, "acme")
	if _, _, err := r.ResolveAuthorization(ctx, "alice"); err != nil {
		t.Fatalf("ResolveAuthorization: %v", err)
	}
	if _, ok := c.entries["realm:acme:authz:alice"]; !ok {
		t.Fatalf("expected tenant scoped key, got %v", c.entries)
	}
}
