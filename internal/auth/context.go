package auth

import "context"

type acceptedContextKey struct{}

// ContextWithAccepted attaches the identity accepted by Verify to the context.
func ContextWithAccepted(ctx context.Context, accepted Accepted) context.Context {
	if accepted.Code == "" {
		return ctx
	}
	return context.WithValue(ctx, acceptedContextKey{}, accepted)
}

// AcceptedFromContext extracts the accepted identity, if any.
func AcceptedFromContext(ctx context.Context) (Accepted, bool) {
	if ctx == nil {
		return Accepted{}, false
	}
	v, ok := ctx.Value(acceptedContextKey{}).(Accepted)
	if !ok || v.Code == "" {
		return Accepted{}, false
	}
	return v, true
}
