package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// DefaultContextKey is the router locals key the filter publishes under
const DefaultContextKey = "principal"

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal from the context. A missing or
// nil principal means the request is anonymous.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// PrincipalFromRouter finds the principal in the router context, checking
// the request context first and the locals under key second.
func PrincipalFromRouter(ctx router.Context, key string) (*Principal, bool) {
	if p, ok := PrincipalFromContext(ctx.Context()); ok {
		return p, true
	}

	if key == "" {
		key = DefaultContextKey
	}

	raw, ok := ctx.Locals(key).(*Principal)
	return raw, ok && raw != nil
}

// CurrentPrincipal returns the principal or ErrUnauthenticated
func CurrentPrincipal(ctx router.Context) (*Principal, error) {
	p, ok := PrincipalFromRouter(ctx, "")
	if !ok {
		return nil, ErrUnauthenticated
	}
	return p, nil
}
