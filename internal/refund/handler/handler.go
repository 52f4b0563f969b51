// Package handler exposes the refund pipeline over HTTP. Stakeholder routes
// live under /v1 and only ever render the public view; internal routes live
// under /internal and are mounted behind role checks by the router.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"adjudicator/internal/refund/models"
	"adjudicator/internal/refund/pipeline"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/platform/httputil"
	"adjudicator/pkg/requestcontext"
)

// Service is the pipeline surface the handlers call.
type Service interface {
	Submit(ctx context.Context, in pipeline.SubmitInput) (*models.RefundRequest, error)
	Attach(ctx context.Context, refundID id.RefundID, in pipeline.DocumentInput) (*models.RefundRequest, error)
	PublicStatus(ctx context.Context, refundID id.RefundID) (pipeline.PublicView, error)
	Withdraw(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error)
	Get(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error)
	Trail(ctx context.Context, refundID id.RefundID) ([]audit.Record, error)
	RecordReview(ctx context.Context, refundID id.RefundID, in pipeline.ReviewInput) (*models.RefundRequest, error)
	RecordVote(ctx context.Context, refundID id.RefundID, in pipeline.VoteInput) (*models.RefundRequest, error)
	SignOff(ctx context.Context, refundID id.RefundID, in pipeline.SignOffInput) (*models.RefundRequest, error)
	Clear(ctx context.Context, refundID id.RefundID, in pipeline.ClearanceInput) (*models.RefundRequest, error)
	Disburse(ctx context.Context, refundID id.RefundID, reference string) (*models.RefundRequest, error)
	Retry(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error)
}

// Queue hands accepted requests to the background worker.
type Queue interface {
	Enqueue(ctx context.Context, refundID id.RefundID) error
}

// Handler wires refund endpoints to the pipeline.
type Handler struct {
	service Service
	queue   Queue
	logger  *slog.Logger
}

// New constructs a refund handler. queue may be nil, in which case new
// requests wait for the monitor sweep to pick them up.
func New(service Service, queue Queue, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		queue:   queue,
		logger:  logger,
	}
}

// RegisterStakeholder mounts the stakeholder-facing routes. submitMW wraps
// only the submission route.
func (h *Handler) RegisterStakeholder(r chi.Router, submitMW ...func(http.Handler) http.Handler) {
	r.With(submitMW...).Post("/v1/refunds", h.HandleSubmit)
	r.Post("/v1/refunds/{id}/evidence", h.HandleAttach)
	r.Get("/v1/refunds/{id}/status", h.HandleStatus)
	r.Post("/v1/refunds/{id}/withdraw", h.HandleWithdraw)
}

// RegisterInternal mounts the reviewer, committee and compliance routes.
func (h *Handler) RegisterInternal(r chi.Router) {
	r.Get("/internal/refunds/{id}", h.HandleGet)
	r.Get("/internal/refunds/{id}/trail", h.HandleTrail)
	r.Post("/internal/refunds/{id}/review", h.HandleReview)
	r.Post("/internal/refunds/{id}/votes", h.HandleVote)
	r.Post("/internal/refunds/{id}/signoff", h.HandleSignOff)
	r.Post("/internal/refunds/{id}/clearance", h.HandleClearance)
	r.Post("/internal/refunds/{id}/disburse", h.HandleDisburse)
}

// RegisterOperator mounts the operator queue routes.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Post("/internal/refunds/{id}/retry", h.HandleRetry)
}

// HandleSubmit handles POST /v1/refunds.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	stakeholderID, err := id.ParseStakeholderID(requestcontext.Principal(ctx).Subject)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "caller is not a stakeholder"))
		return
	}

	body, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in := body.parsed
	in.StakeholderID = stakeholderID

	req, err := h.service.Submit(ctx, in)
	if err != nil {
		h.fail(ctx, w, "submit refund", "", err)
		return
	}

	if h.queue != nil {
		if err := h.queue.Enqueue(ctx, req.ID); err != nil {
			// The monitor sweep picks up requests left in Received.
			h.logger.WarnContext(ctx, "failed to enqueue refund",
				"request_id", requestID,
				"refund_id", req.ID.String(),
				"error", err,
			)
		}
	}

	h.logger.InfoContext(ctx, "refund submitted",
		"request_id", requestID,
		"refund_id", req.ID.String(),
		"category", string(req.Category),
	)
	httputil.WriteJSON(w, http.StatusAccepted, submitted(req))
}

// HandleAttach handles POST /v1/refunds/{id}/evidence.
func (h *Handler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[DocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	req, err := h.service.Attach(ctx, refundID, body.parsed)
	if err != nil {
		h.fail(ctx, w, "attach evidence", refundID.String(), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, submitted(req))
}

// HandleStatus handles GET /v1/refunds/{id}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	view, err := h.service.PublicStatus(ctx, refundID)
	if err != nil {
		h.fail(ctx, w, "public status", refundID.String(), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleWithdraw handles POST /v1/refunds/{id}/withdraw.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	req, err := h.service.Withdraw(ctx, refundID)
	if err != nil {
		h.fail(ctx, w, "withdraw refund", refundID.String(), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, submitted(req))
}

// HandleGet handles GET /internal/refunds/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	req, err := h.service.Get(ctx, refundID)
	if err != nil {
		h.fail(ctx, w, "get refund", refundID.String(), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRefundResponse(req, pipeline.MaySeeConfidential(ctx)))
}

// HandleTrail handles GET /internal/refunds/{id}/trail.
func (h *Handler) HandleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	records, err := h.service.Trail(ctx, refundID)
	if err != nil {
		h.fail(ctx, w, "read trail", refundID.String(), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTrailResponse(refundID.String(), records))
}

// HandleReview handles POST /internal/refunds/{id}/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "record review", refundID, func() (*models.RefundRequest, error) {
		return h.service.RecordReview(ctx, refundID, body.input())
	})
}

// HandleVote handles POST /internal/refunds/{id}/votes.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[VoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "record vote", refundID, func() (*models.RefundRequest, error) {
		return h.service.RecordVote(ctx, refundID, pipeline.VoteInput{Approve: *body.Approve, Rationale: body.Rationale})
	})
}

// HandleSignOff handles POST /internal/refunds/{id}/signoff.
func (h *Handler) HandleSignOff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[SignOffRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "record sign-off", refundID, func() (*models.RefundRequest, error) {
		return h.service.SignOff(ctx, refundID, pipeline.SignOffInput{AccountOverride: body.AccountOverride})
	})
}

// HandleClearance handles POST /internal/refunds/{id}/clearance.
func (h *Handler) HandleClearance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[ClearanceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "record clearance", refundID, func() (*models.RefundRequest, error) {
		return h.service.Clear(ctx, refundID, pipeline.ClearanceInput{Cleared: *body.Cleared, Reference: body.Reference})
	})
}

// HandleDisburse handles POST /internal/refunds/{id}/disburse.
func (h *Handler) HandleDisburse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[DisburseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "record disbursement", refundID, func() (*models.RefundRequest, error) {
		return h.service.Disburse(ctx, refundID, body.Reference)
	})
}

// HandleRetry handles POST /internal/refunds/{id}/retry.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.refundID(w, r)
	if !ok {
		return
	}
	h.respond(ctx, w, "retry screening", refundID, func() (*models.RefundRequest, error) {
		return h.service.Retry(ctx, refundID)
	})
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, op string, refundID id.RefundID, call func() (*models.RefundRequest, error)) {
	start := time.Now()
	req, err := call()
	if err != nil {
		h.fail(ctx, w, op, refundID.String(), err)
		return
	}
	h.logger.InfoContext(ctx, op,
		"request_id", requestcontext.RequestID(ctx),
		"refund_id", refundID.String(),
		"state", string(req.State),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, toRefundResponse(req, pipeline.MaySeeConfidential(ctx)))
}

func (h *Handler) refundID(w http.ResponseWriter, r *http.Request) (id.RefundID, bool) {
	refundID, err := id.ParseRefundID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "refund request not found"))
		return id.RefundID{}, false
	}
	return refundID, true
}

// fail logs at a level matching the error class and writes the response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op, refundID string, err error) {
	level := slog.LevelWarn
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeInfrastructure:
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"refund_id", refundID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
