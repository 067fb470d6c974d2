package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Arthur-Pio/axelor-open-platform/internal/audit"
	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
	"github.com/Arthur-Pio/axelor-open-platform/internal/cache"
	"github.com/Arthur-Pio/axelor-open-platform/internal/config"
	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
	"github.com/Arthur-Pio/axelor-open-platform/internal/persistence"
	"github.com/Arthur-Pio/axelor-open-platform/internal/store/pg"
)

// runtime bundles the wired services shared by the subcommands.
type runtime struct {
	persistence *persistence.Manager
	store       *pg.Store
	cache       *cache.RedisCache
	audit       *audit.Logger
	verifier    *auth.Verifier
	resolver    *auth.Resolver
	logger      zerolog.Logger
}

func openRuntime(ctx context.Context, settings config.Settings) (*runtime, error) {
	logger := obs.WithComponent("realm")
	mgr, err := persistence.New(settings,
		persistence.WithAutostart(false),
		persistence.WithModels(pg.ModelPackage, pg.Models()...),
	)
	if err != nil {
		return nil, err
	}
	if err := mgr.Start(ctx); err != nil {
		_ = mgr.Close()
		return nil, err
	}
	rt := &runtime{
		persistence: mgr,
		store:       pg.New(mgr),
		audit:       audit.NewLogger(),
		logger:      logger,
	}

	var resolverOpts []auth.ResolverOption
	enabled, err := settings.GetBool("cache.enabled", false)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if enabled {
		if rt.cache, err = openCache(ctx, settings); err != nil {
			rt.Close()
			return nil, err
		}
		ttl, err := settings.GetDuration("cache.ttl", 0)
		if err != nil {
			rt.Close()
			return nil, err
		}
		resolverOpts = append(resolverOpts,
			auth.WithCache(rt.cache, ttl),
			auth.WithCacheKey(authzCacheKey(mgr)),
		)
	}

	if rt.resolver, err = auth.NewResolver(rt.store, resolverOpts...); err != nil {
		rt.Close()
		return nil, err
	}
	if rt.verifier, err = auth.NewVerifier(rt.store, auth.WithAuditSink(rt.audit)); err != nil {
		rt.Close()
		return nil, err
	}
	rt.store.OnChange(rt.resolver.Invalidate)
	return rt, nil
}

// authzCacheKey scopes cache entries by the tenant the manager actually routes to, so a
// stray tenant header in single-tenant mode shares keys with store invalidations.
func authzCacheKey(mgr *persistence.Manager) func(ctx context.Context, code string) string {
	return func(ctx context.Context, code string) string {
		return "realm:" + mgr.TenantFor(ctx) + ":authz:" + code
	}
}

func openCache(ctx context.Context, settings config.Settings) (*cache.RedisCache, error) {
	db, err := settings.GetInt("cache.redis.db", 0)
	if err != nil {
		return nil, err
	}
	rc, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     settings.Get("cache.redis.addr"),
		Password: settings.Get("cache.redis.password"),
		DB:       db,
	}, obs.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("open authorization cache: %w", err)
	}
	return rc, nil
}

func (rt *runtime) Close() {
	if rt.cache != nil {
		if err := rt.cache.Close(); err != nil {
			rt.logger.Warn().Err(err).Msg("close cache")
		}
	}
	if err := rt.persistence.Close(); err != nil {
		rt.logger.Warn().Err(err).Msg("close persistence")
	}
}
