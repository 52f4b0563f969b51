// Package requesttime provides middleware for request-scoped time.
// All operations within a single HTTP request use the same "now" timestamp,
// so audit records and SLA checkpoints written by one request agree.
package requesttime

import (
	"net/http"
	"time"

	"adjudicator/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request, in UTC
// and at microsecond precision so values round-trip through Postgres unchanged.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC().Truncate(time.Microsecond))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
