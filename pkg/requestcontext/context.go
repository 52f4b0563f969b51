// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Values are typically set by middleware and consumed by services, so services can
// depend on this package without importing net/http.
//
// Usage in services (read values):
//
//	principal := requestcontext.Principal(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithPrincipal(ctx, requestcontext.Caller{Subject: "...", Role: "finance"})
package requestcontext

import (
	"context"
	"time"
)

type (
	principalKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyPrincipal   = principalKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Caller is the authenticated actor behind a request: a stakeholder, an
// internal reviewer, or a system process such as the monitor.
type Caller struct {
	Subject string
	Role    string
}

// IsZero reports whether no caller was authenticated.
func (c Caller) IsZero() bool { return c.Subject == "" }

// -----------------------------------------------------------------------------
// Auth context
// -----------------------------------------------------------------------------

// Principal retrieves the authenticated caller. Returns the zero value if unset.
func Principal(ctx context.Context) Caller {
	if c, ok := ctx.Value(ContextKeyPrincipal).(Caller); ok {
		return c
	}
	return Caller{}
}

// WithPrincipal injects the authenticated caller into the context.
func WithPrincipal(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, c)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Monitor sweeps that need one consistent time per pass
//   - CLI commands
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
