// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services and tests read them
// without importing net/http.
package requestcontext

import (
	"context"
	"time"

	"custodian/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	principalKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Principal retrieves the authenticated identity candidate from the context.
// Returns the zero value if not set.
func Principal(ctx context.Context) domain.Principal {
	if p, ok := ctx.Value(principalKey{}).(domain.Principal); ok {
		return p
	}
	return domain.Principal{}
}

// WithPrincipal injects an identity candidate into the context.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now returns the request time if one was injected, otherwise the wall clock.
// Tests inject fixed times with WithTime to make age and timestamp logic
// deterministic.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
