// Package httptransport assembles the HTTP surface: middleware, the refund
// routes grouped by role, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"adjudicator/internal/refund/handler"
	"adjudicator/internal/refund/models"
	"adjudicator/pkg/platform/httputil"
	authmw "adjudicator/pkg/platform/middleware/auth"
	"adjudicator/pkg/platform/middleware/request"
	"adjudicator/pkg/platform/middleware/requesttime"
)

// Deps are the pieces the router mounts.
type Deps struct {
	Refunds   *handler.Handler
	Validator authmw.JWTValidator
	Metrics   http.Handler
	Logger    *slog.Logger
	// SubmitLimit, when set, wraps refund submission.
	SubmitLimit func(http.Handler) http.Handler
	// Ready lists the dependencies /readyz pings, by name.
	Ready map[string]func(context.Context) error
}

const readyTimeout = 2 * time.Second

var (
	stakeholderRoles = []string{string(models.RoleStakeholder)}
	internalRoles    = []string{
		string(models.RoleReviewer),
		string(models.RoleFinance),
		string(models.RoleCompliance),
		string(models.RoleLegal),
		string(models.RoleSenior),
		string(models.RoleOperator),
	}
	operatorRoles = []string{string(models.RoleOperator), string(models.RoleSenior)}
)

// NewRouter wires every endpoint.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readiness(d.Ready))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Validator, d.Logger))

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(d.Logger, stakeholderRoles...))
			var submitMW []func(http.Handler) http.Handler
			if d.SubmitLimit != nil {
				submitMW = append(submitMW, d.SubmitLimit)
			}
			d.Refunds.RegisterStakeholder(r, submitMW...)
		})
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(d.Logger, internalRoles...))
			d.Refunds.RegisterInternal(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(d.Logger, operatorRoles...))
			d.Refunds.RegisterOperator(r)
		})
	})
	return r
}

// readiness pings every dependency concurrently and reports the ones that
// failed. Failure details stay in the logs of the component itself.
func readiness(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		type result struct {
			name string
			err  error
		}
		results := make(chan result, len(checks))
		for name, check := range checks {
			go func() {
				results <- result{name: name, err: check(ctx)}
			}()
		}
		var failing []string
		for range checks {
			if res := <-results; res.err != nil {
				failing = append(failing, res.name)
			}
		}
		if len(failing) > 0 {
			sort.Strings(failing)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failing": failing})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}
}
