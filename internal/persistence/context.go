package persistence

import (
	"context"
	"strings"
)

// DefaultTenant names the connection used when no tenant is selected.
const DefaultTenant = "default"

type tenantContextKey struct{}
type actorContextKey struct{}

// ContextWithTenant selects the tenant database for calls made with ctx.
func ContextWithTenant(ctx context.Context, tenant string) context.Context {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext returns the selected tenant or DefaultTenant.
func TenantFromContext(ctx context.Context) string {
	if ctx == nil {
		return DefaultTenant
	}
	if v, ok := ctx.Value(tenantContextKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultTenant
}

// ContextWithActor records who performs writes made with ctx.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the acting identity, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(actorContextKey{}).(string)
	return v, ok && v != ""
}
