package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"adjudicator/internal/refund/handler"
	"adjudicator/internal/refund/handler/mocks"
	"adjudicator/internal/refund/pipeline"
	id "adjudicator/pkg/domain"
	authmw "adjudicator/pkg/platform/middleware/auth"
	"adjudicator/pkg/platform/middleware/request"
)

// staticValidator maps fixed tokens to callers.
type staticValidator map[string]authmw.JWTClaims

func (v staticValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	c, ok := v[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &c, nil
}

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := staticValidator{
		"stakeholder": {Subject: uuid.NewString(), Role: "stakeholder"},
		"reviewer":    {Subject: uuid.NewString(), Role: "reviewer"},
		"operator":    {Subject: uuid.NewString(), Role: "operator"},
	}
	router := NewRouter(Deps{
		Refunds:   handler.New(svc, nil, logger),
		Validator: validator,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Logger: logger,
	})
	return router, svc
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_OperationalEndpointsAreOpen(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(request.HeaderRequestID))

	rec = serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)
	refundID := id.NewRefundID().String()

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/v1/refunds/"+refundID+"/status", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/v1/refunds/"+refundID+"/status", "forged").Code)
}

func TestRouter_SeparatesStakeholderAndInternalRoutes(t *testing.T) {
	router, svc := newTestRouter(t)
	refundID := id.NewRefundID()

	rec := serve(router, http.MethodGet, "/internal/refunds/"+refundID.String(), "stakeholder")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, http.MethodGet, "/v1/refunds/"+refundID.String()+"/status", "reviewer")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, http.MethodPost, "/internal/refunds/"+refundID.String()+"/retry", "reviewer")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	svc.EXPECT().PublicStatus(gomock.Any(), refundID).Return(pipeline.PublicView{ReferenceID: refundID.String()}, nil)
	rec = serve(router, http.MethodGet, "/v1/refunds/"+refundID.String()+"/status", "stakeholder")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SubmitLimitWrapsOnlySubmission(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(Deps{
		Refunds:   handler.New(svc, nil, logger),
		Validator: staticValidator{"stakeholder": {Subject: uuid.NewString(), Role: "stakeholder"}},
		Logger:    logger,
		SubmitLimit: func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			})
		},
	})
	refundID := id.NewRefundID()

	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodPost, "/v1/refunds", "stakeholder").Code)

	svc.EXPECT().PublicStatus(gomock.Any(), refundID).Return(pipeline.PublicView{ReferenceID: refundID.String()}, nil)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/v1/refunds/"+refundID.String()+"/status", "stakeholder").Code)
}

func TestRouter_ReadinessReportsFailingDependencies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ready := map[string]func(context.Context) error{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
	}
	router := NewRouter(Deps{
		Refunds:   handler.New(mocks.NewMockService(gomock.NewController(t)), nil, logger),
		Validator: staticValidator{},
		Logger:    logger,
		Ready:     ready,
	})

	rec := serve(router, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","failing":["redis"]}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "connection refused")

	ready["redis"] = func(context.Context) error { return nil }
	rec = serve(router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
