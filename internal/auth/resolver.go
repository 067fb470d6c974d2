package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Arthur-Pio/axelor-open-platform/internal/cache"
	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
)

const (
	defaultCacheTTL    = 10 * time.Minute
	defaultCachePrefix = "realm:authz:"
)

// Resolver maps an identity code to the role labels of its account.
type Resolver struct {
	accounts AccountFinder
	cache    cache.Cache
	ttl      time.Duration
	keyFn    func(ctx context.Context, code string) string
	logger   zerolog.Logger
}

// ResolverOption configures Resolver behavior.
type ResolverOption func(*Resolver)

// WithCache enables caching of resolved authorization info. A ttl <= 0 keeps the default.
func WithCache(c cache.Cache, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.cache = c
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithCacheKey overrides how cache keys are derived, e.g. to scope them per tenant.
func WithCacheKey(fn func(ctx context.Context, code string) string) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.keyFn = fn
		}
	}
}

// WithResolverLogger overrides the component logger.
func WithResolverLogger(l zerolog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver constructs a Resolver reading from accounts.
func NewResolver(accounts AccountFinder, opts ...ResolverOption) (*Resolver, error) {
	if accounts == nil {
		return nil, errors.New("auth: account finder is required")
	}
	r := &Resolver{
		accounts: accounts,
		ttl:      defaultCacheTTL,
		keyFn: func(_ context.Context, code string) string {
			return defaultCachePrefix + code
		},
		logger: obs.WithComponent("auth"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ResolveAuthorization returns the authorization info for code. The boolean is false when no
// account exists, which is not an error. Storage faults wrap ErrBackingStoreUnavailable.
func (r *Resolver) ResolveAuthorization(ctx context.Context, code string) (AuthorizationInfo, bool, error) {
	ctx, span := tracer.Start(ctx, "auth.ResolveAuthorization", trace.WithAttributes(attribute.String("realm.code", code)))
	defer span.End()

	if code == "" {
		obs.ObserveAuthorizationLookup("empty", "off")
		return AuthorizationInfo{}, false, nil
	}

	cacheState := "off"
	var key string
	if r.cache != nil {
		key = r.keyFn(ctx, code)
		if raw, ok := r.cache.Get(ctx, key); ok {
			var info AuthorizationInfo
			if err := json.Unmarshal(raw, &info); err == nil && info.Code == code {
				if info.Roles == nil {
					info.Roles = []string{}
				}
				obs.ObserveAuthorizationLookup("found", "hit")
				return info, true, nil
			}
			r.logger.Warn().Str("key", key).Msg("discarding undecodable authorization cache entry")
		}
		cacheState = "miss"
	}

	account, err := r.accounts.FindAccountByCode(ctx, code)
	switch {
	case errors.Is(err, ErrNotFound):
		obs.ObserveAuthorizationLookup("empty", cacheState)
		return AuthorizationInfo{}, false, nil
	case err != nil:
		obs.ObserveAuthorizationLookup("error", cacheState)
		span.RecordError(err)
		span.SetStatus(codes.Error, "account lookup failed")
		r.logger.Error().Err(err).Str("code", code).Msg("account lookup failed")
		return AuthorizationInfo{}, false, StoreUnavailable(err)
	case account == nil:
		obs.ObserveAuthorizationLookup("empty", cacheState)
		return AuthorizationInfo{}, false, nil
	}

	info := authorizationFor(account)
	if r.cache != nil {
		if raw, err := json.Marshal(info); err == nil {
			r.cache.Set(ctx, key, raw, r.ttl)
		}
	}
	obs.ObserveAuthorizationLookup("found", cacheState)
	return info, true, nil
}

// Invalidate evicts cached authorization info for the given codes.
func (r *Resolver) Invalidate(ctx context.Context, identities ...string) {
	if r.cache == nil || len(identities) == 0 {
		return
	}
	keys := make([]string, 0, len(identities))
	for _, c := range identities {
		if c == "" {
			continue
		}
		keys = append(keys, r.keyFn(ctx, c))
	}
	r.cache.Delete(ctx, keys...)
}
