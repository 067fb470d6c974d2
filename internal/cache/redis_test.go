package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisCacheSetGet(t *testing.T) {
	_, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("expected v, got %q ok=%v", got, ok)
	}
	stats := c.Stats()
	if stats.Sets != 1 || stats.Hits != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRedisCacheMissAndDelete(t *testing.T) {
	_, c := setupMiniRedis(t)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "absent"); ok {
		t.Fatalf("expected miss")
	}
	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Delete(ctx, "a", "b", "c")
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatalf("expected a to be deleted")
	}
	if got := c.Stats().Deletes; got != 2 {
		t.Fatalf("expected 2 deletes, got %d", got)
	}
	if got := c.Stats().Misses; got != 2 {
		t.Fatalf("expected 2 misses, got %d", got)
	}
}

func TestRedisCacheExpiry(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Second)
	mr.FastForward(2 * time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestRedisCacheDegradesWhenServerGone(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	mr.Close()
	c.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss when redis is down")
	}
}

func TestNewRedisRequiresAddr(t *testing.T) {
	if _, err := NewRedis(context.Background(), RedisConfig{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
