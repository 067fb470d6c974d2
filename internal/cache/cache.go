// Package cache provides the shared cache used for resolved authorization info.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque payloads by key. Implementations log their own faults and report a miss
// instead of failing the caller.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// Stats holds cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Sets    int64
	Deletes int64
}
