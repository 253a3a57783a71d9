// Package requesttime pins one UTC "now" per request so the audit entry, the
// consent timestamps and the person's updated_at written by one GDPR
// operation agree.
package requesttime

import (
	"context"
	"net/http"
	"time"
)

type contextKey struct{}

// Precision is the resolution of Postgres timestamptz. Times are truncated
// to it so a value read back from either store equals the one written.
const Precision = time.Microsecond

func current() time.Time {
	return time.Now().UTC().Truncate(Precision)
}

// Middleware stores the request's start time in its context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithTime(r.Context(), current())))
	})
}

// Now returns the request-scoped time, or the current time outside a
// request (seeder, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKey{}).(time.Time); ok {
		return t
	}
	return current()
}

// WithTime pins now to t, normalised to UTC and Precision.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKey{}, t.UTC().Truncate(Precision))
}
