package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "adjudicator/pkg/domain-errors"
	"adjudicator/pkg/platform/httputil"
	"adjudicator/pkg/requestcontext"
)

// Middleware applies one limit per authenticated subject.
type Middleware struct {
	store   Store
	scope   string
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Middleware)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

// New limits scope to limit hits per subject per window. A non-positive limit
// disables the check.
func New(store Store, scope string, limit int, window time.Duration, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		scope:  scope,
		limit:  limit,
		window: window,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PerSubject must run after authentication. Store failures fail open.
func (m *Middleware) PerSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller := requestcontext.Principal(ctx)
		if m.limit <= 0 || caller.IsZero() {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.store.AllowN(ctx, m.scope+":"+caller.Subject, 1, m.limit, m.window)
		if err != nil {
			m.metrics.IncStoreError()
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"error", err,
				"scope", m.scope,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		if !result.Allowed {
			m.metrics.IncRejected(m.scope)
			retry := max(int(time.Until(result.ResetAt).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"scope", m.scope,
				"subject", caller.Subject,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests; try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
