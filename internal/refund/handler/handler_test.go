package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"adjudicator/internal/refund/handler/mocks"
	"adjudicator/internal/refund/models"
	"adjudicator/internal/refund/pipeline"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/requestcontext"
	"adjudicator/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,Queue

// HandlerSuite covers HTTP concerns only: parsing, caller resolution and
// response mapping. Pipeline behaviour is tested in the pipeline package.
type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	queue   *mocks.MockQueue
	router  http.Handler
	owner   id.StakeholderID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.queue = mocks.NewMockQueue(ctrl)
	s.owner = id.StakeholderID(uuid.New())

	h := New(s.service, s.queue, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.RegisterStakeholder(r)
	h.RegisterInternal(r)
	h.RegisterOperator(r)
	s.router = r
}

// =============================================================================
// Helpers
// =============================================================================

func (s *HandlerSuite) do(method, path string, body any, caller requestcontext.Caller) *httptest.ResponseRecorder {
	req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), method, path, body), caller)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) stakeholder() requestcontext.Caller {
	return requestcontext.Caller{Subject: s.owner.String(), Role: string(models.RoleStakeholder)}
}

func internalCaller(role models.Role) requestcontext.Caller {
	return requestcontext.Caller{Subject: uuid.NewString(), Role: string(role)}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func submitBody() map[string]any {
	return map[string]any{
		"transaction_id": "TXN-1001",
		"category":       "share-purchase",
		"stage":          "pending",
		"grounds":        []string{"cooling-off"},
		"amount":         "50000.00",
		"transaction": map[string]any{
			"transacted_at":  "2026-02-27T10:00:00Z",
			"gateway_fee":    "250",
			"source_account": "ACC-1",
		},
		"documents": []map[string]any{{
			"type":         "identity",
			"filename":     "id.pdf",
			"content_type": "application/pdf",
			"content":      base64.StdEncoding.EncodeToString([]byte("identity document")),
		}},
	}
}

func sampleRequest(state models.State) *models.RefundRequest {
	return &models.RefundRequest{
		ID:            id.NewRefundID(),
		StakeholderID: id.StakeholderID(uuid.New()),
		TransactionID: "TXN-1001",
		Category:      models.CategorySharePurchase,
		Amount:        decimal.NewFromInt(50_000),
		State:         state,
		Version:       3,
		Risk: &models.RiskVerdict{
			Level:      models.RiskEDDRequired,
			Score:      40,
			Indicators: []models.Indicator{{Code: "pep_match", Ref: "PEP-9", Weight: 40}},
		},
	}
}

// =============================================================================
// Stakeholder routes
// =============================================================================

func (s *HandlerSuite) TestSubmit_Accepted() {
	created := sampleRequest(models.StateReceived)
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in pipeline.SubmitInput) (*models.RefundRequest, error) {
			s.Equal(s.owner, in.StakeholderID, "stakeholder comes from the caller")
			s.Equal(models.CategorySharePurchase, in.Category)
			s.True(in.Amount.Equal(decimal.NewFromInt(50_000)))
			s.True(in.Facts.GatewayFee.Equal(decimal.NewFromInt(250)))
			s.Require().Len(in.Documents, 1)
			s.Equal([]byte("identity document"), in.Documents[0].Content)
			return created, nil
		})
	s.queue.EXPECT().Enqueue(gomock.Any(), created.ID).Return(nil)

	rec := s.do(http.MethodPost, "/v1/refunds", submitBody(), s.stakeholder())

	s.Equal(http.StatusAccepted, rec.Code)
	body := decode(s.T(), rec)
	s.Equal(created.ID.String(), body["reference_id"])
	s.Equal("received", body["status"])
}

// Justification: a full queue must not lose an accepted request; the monitor
// sweep processes anything left in Received.
func (s *HandlerSuite) TestSubmit_EnqueueFailureStillAccepted() {
	created := sampleRequest(models.StateReceived)
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(created, nil)
	s.queue.EXPECT().Enqueue(gomock.Any(), created.ID).Return(errors.New("queue full"))

	rec := s.do(http.MethodPost, "/v1/refunds", submitBody(), s.stakeholder())

	s.Equal(http.StatusAccepted, rec.Code)
}

func (s *HandlerSuite) TestSubmit_RejectsBadBodies() {
	cases := map[string]func(map[string]any){
		"unknown category": func(b map[string]any) { b["category"] = "lottery" },
		"bad amount":       func(b map[string]any) { b["amount"] = "fifty" },
		"negative fee": func(b map[string]any) {
			b["transaction"].(map[string]any)["gateway_fee"] = "-1"
		},
		"bad document encoding": func(b map[string]any) {
			b["documents"].([]map[string]any)[0]["content"] = "%%%"
		},
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			body := submitBody()
			mutate(body)
			rec := s.do(http.MethodPost, "/v1/refunds", body, s.stakeholder())
			s.Equal(http.StatusBadRequest, rec.Code)
		})
	}

	rec := s.do(http.MethodPost, "/v1/refunds", "{not json", s.stakeholder())
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestSubmit_RequiresStakeholderSubject() {
	rec := s.do(http.MethodPost, "/v1/refunds", submitBody(), requestcontext.Caller{Subject: "svc-batch", Role: "stakeholder"})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestStatus_ReturnsPublicView() {
	refundID := id.NewRefundID()
	s.service.EXPECT().PublicStatus(gomock.Any(), refundID).Return(pipeline.PublicView{
		ReferenceID: refundID.String(),
		Status:      models.PublicRejected,
		Summary:     models.PublicRejected.Summary(),
		Reason:      "request is outside the refund window",
		Clause:      "4.6",
	}, nil)

	rec := s.do(http.MethodGet, "/v1/refunds/"+refundID.String()+"/status", nil, s.stakeholder())

	s.Equal(http.StatusOK, rec.Code)
	body := decode(s.T(), rec)
	s.Equal("rejected", body["status"])
	s.Equal("4.6", body["clause"])
	s.NotContains(body, "state")
}

func (s *HandlerSuite) TestStatus_MalformedIDIsNotFound() {
	rec := s.do(http.MethodGet, "/v1/refunds/not-a-uuid/status", nil, s.stakeholder())
	testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestWithdraw_InvalidState() {
	refundID := id.NewRefundID()
	s.service.EXPECT().Withdraw(gomock.Any(), refundID).
		Return(nil, dErrors.New(dErrors.CodeInvalidState, "request can no longer be withdrawn"))

	rec := s.do(http.MethodPost, "/v1/refunds/"+refundID.String()+"/withdraw", nil, s.stakeholder())

	testutil.AssertStatusAndError(s.T(), rec, http.StatusConflict, "invalid_state")
}

func (s *HandlerSuite) TestAttach() {
	req := sampleRequest(models.StateL2Review)
	s.service.EXPECT().Attach(gomock.Any(), req.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ id.RefundID, in pipeline.DocumentInput) (*models.RefundRequest, error) {
			s.Equal(models.EvidenceIdentity, in.Type)
			return req, nil
		})

	rec := s.do(http.MethodPost, "/v1/refunds/"+req.ID.String()+"/evidence", map[string]any{
		"type":    "identity",
		"content": base64.StdEncoding.EncodeToString([]byte("scan")),
	}, s.stakeholder())

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("under_review", decode(s.T(), rec)["status"])
}

// =============================================================================
// Internal routes
// =============================================================================

// Justification: AML findings are only rendered to compliance and senior roles.
func (s *HandlerSuite) TestGet_HidesRiskFromReviewers() {
	req := sampleRequest(models.StateL2Review)
	s.service.EXPECT().Get(gomock.Any(), req.ID).Return(req, nil).Times(2)

	rec := s.do(http.MethodGet, "/internal/refunds/"+req.ID.String(), nil, internalCaller(models.RoleReviewer))
	s.Equal(http.StatusOK, rec.Code)
	s.NotContains(decode(s.T(), rec), "risk")

	rec = s.do(http.MethodGet, "/internal/refunds/"+req.ID.String(), nil, internalCaller(models.RoleCompliance))
	s.Equal(http.StatusOK, rec.Code)
	risk := decode(s.T(), rec)["risk"].(map[string]any)
	s.Equal("edd-required", risk["level"])
}

func (s *HandlerSuite) TestTrail() {
	refundID := id.NewRefundID()
	s.service.EXPECT().Trail(gomock.Any(), refundID).Return([]audit.Record{
		{RefundID: refundID, Seq: 1, Action: audit.ActionSubmitted, Category: audit.CategoryCompliance, Timestamp: time.Now()},
		{RefundID: refundID, Seq: 2, Action: audit.ActionTransition, From: "received", To: "acknowledged", Timestamp: time.Now()},
	}, nil)

	rec := s.do(http.MethodGet, "/internal/refunds/"+refundID.String()+"/trail", nil, internalCaller(models.RoleReviewer))

	s.Equal(http.StatusOK, rec.Code)
	records := decode(s.T(), rec)["records"].([]any)
	s.Len(records, 2)
	s.Equal("acknowledged", records[1].(map[string]any)["to"])
}

func (s *HandlerSuite) TestReview_ValidatesRecommendation() {
	refundID := id.NewRefundID()
	rec := s.do(http.MethodPost, "/internal/refunds/"+refundID.String()+"/review",
		map[string]any{"recommendation": "maybe"}, internalCaller(models.RoleReviewer))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestReview_PassesInput() {
	req := sampleRequest(models.StateDisbursing)
	s.service.EXPECT().RecordReview(gomock.Any(), req.ID, pipeline.ReviewInput{
		Recommendation:        models.RecommendApprove,
		AuthenticityConfirmed: true,
		Notes:                 "documents match",
	}).Return(req, nil)

	rec := s.do(http.MethodPost, "/internal/refunds/"+req.ID.String()+"/review", map[string]any{
		"recommendation":         "approve",
		"authenticity_confirmed": true,
		"notes":                  "documents match",
	}, internalCaller(models.RoleReviewer))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("disbursing", decode(s.T(), rec)["state"])
}

func (s *HandlerSuite) TestVote_RequiresExplicitChoice() {
	refundID := id.NewRefundID()
	rec := s.do(http.MethodPost, "/internal/refunds/"+refundID.String()+"/votes",
		map[string]any{"rationale": "fine"}, internalCaller(models.RoleFinance))
	s.Equal(http.StatusBadRequest, rec.Code)

	req := sampleRequest(models.StateL3Review)
	s.service.EXPECT().RecordVote(gomock.Any(), req.ID, pipeline.VoteInput{Approve: false, Rationale: "fee retained"}).Return(req, nil)
	rec = s.do(http.MethodPost, "/internal/refunds/"+req.ID.String()+"/votes",
		map[string]any{"approve": false, "rationale": "fee retained"}, internalCaller(models.RoleFinance))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestClearance() {
	req := sampleRequest(models.StateL2Review)
	s.service.EXPECT().Clear(gomock.Any(), req.ID, pipeline.ClearanceInput{Cleared: true, Reference: "FIU-22"}).Return(req, nil)

	rec := s.do(http.MethodPost, "/internal/refunds/"+req.ID.String()+"/clearance",
		map[string]any{"cleared": true, "reference": "FIU-22"}, internalCaller(models.RoleCompliance))

	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestSignOffAndDisburse() {
	req := sampleRequest(models.StateDisbursing)
	s.service.EXPECT().SignOff(gomock.Any(), req.ID, pipeline.SignOffInput{AccountOverride: true}).Return(req, nil)
	s.service.EXPECT().Disburse(gomock.Any(), req.ID, "UTR-77").Return(req, nil)

	rec := s.do(http.MethodPost, "/internal/refunds/"+req.ID.String()+"/signoff",
		map[string]any{"account_override": true}, internalCaller(models.RoleSenior))
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/internal/refunds/"+req.ID.String()+"/disburse",
		map[string]any{"reference": ""}, internalCaller(models.RoleOperator))
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/internal/refunds/"+req.ID.String()+"/disburse",
		map[string]any{"reference": "UTR-77"}, internalCaller(models.RoleOperator))
	s.Equal(http.StatusOK, rec.Code)
}

// Justification: infrastructure failures surface as a delay, never as their
// underlying message.
func (s *HandlerSuite) TestRetry_InfrastructureErrorIsOpaque() {
	refundID := id.NewRefundID()
	s.service.EXPECT().Retry(gomock.Any(), refundID).
		Return(nil, dErrors.Wrap(errors.New("dial tcp 10.0.0.5:5432"), dErrors.CodeInfrastructure, "processing delayed"))

	rec := s.do(http.MethodPost, "/internal/refunds/"+refundID.String()+"/retry", nil, internalCaller(models.RoleOperator))

	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.NotContains(rec.Body.String(), "10.0.0.5")
	assert.Equal(s.T(), "processing delayed", decode(s.T(), rec)["error_description"])
}
