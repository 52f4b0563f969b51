package pipeline

import (
	"context"

	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/requestcontext"
)

// PublicView is everything a stakeholder may learn about their request.
// It never carries risk levels, indicators or hold state.
type PublicView struct {
	ReferenceID string              `json:"reference_id"`
	Status      models.PublicStatus `json:"status"`
	Summary     string              `json:"summary"`
	Reason      string              `json:"reason,omitempty"`
	Clause      string              `json:"clause,omitempty"`
}

// Get returns the internal view of a request.
func (s *Service) Get(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	req, err := s.store.Get(ctx, refundID)
	if err != nil {
		return nil, translate(err)
	}
	return req, nil
}

// PublicStatus returns the stakeholder-safe view. Rejections carry the
// reason and the cited clause.
func (s *Service) PublicStatus(ctx context.Context, refundID id.RefundID) (PublicView, error) {
	req, err := s.store.Get(ctx, refundID)
	if err != nil {
		return PublicView{}, translate(err)
	}
	if err := s.requireOwner(ctx, req.StakeholderID); err != nil {
		return PublicView{}, err
	}
	status := req.State.Public()
	view := PublicView{
		ReferenceID: req.ID.String(),
		Status:      status,
		Summary:     status.Summary(),
	}
	if status == models.PublicRejected && req.Decision != nil {
		view.Reason = req.Decision.Reason
		view.Clause = s.policies.Cite(req.PolicyVersion, req.Decision.Clause)
	}
	return view, nil
}

// Trail returns the request's audit trail. Confidential records are only
// returned to compliance and senior callers.
func (s *Service) Trail(ctx context.Context, refundID id.RefundID) ([]audit.Record, error) {
	if _, err := s.store.Get(ctx, refundID); err != nil {
		return nil, translate(err)
	}
	records, err := s.audit.List(ctx, refundID)
	if err != nil {
		return nil, translate(err)
	}
	return audit.Visible(records, MaySeeConfidential(ctx)), nil
}

// MaySeeConfidential reports whether the caller may read AML facts.
func MaySeeConfidential(ctx context.Context) bool {
	switch models.Role(requestcontext.Principal(ctx).Role) {
	case models.RoleCompliance, models.RoleSenior:
		return true
	}
	return false
}

// Open lists every request the monitor must consider.
func (s *Service) Open(ctx context.Context) ([]*models.RefundRequest, error) {
	reqs, err := s.store.ListNonTerminal(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "list open requests")
	}
	return reqs, nil
}
