package pipeline

import (
	"context"
	"errors"
	"strconv"
	"time"

	"adjudicator/internal/disbursement"
	"adjudicator/internal/policy"
	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/requestcontext"
)

// Withdraw cancels a claim at the stakeholder's request. Before human review
// it ends in Withdrawn; once a reviewer holds it, WithdrawnByStakeholder.
func (s *Service) Withdraw(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	caller := requestcontext.Principal(ctx)
	if models.Role(caller.Role) != models.RoleStakeholder {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the stakeholder can withdraw a claim")
	}
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if err := s.requireOwner(ctx, req.StakeholderID); err != nil {
			return err
		}
		var to models.State
		switch req.State {
		case models.StateReceived, models.StateAcknowledged, models.StateL1Screening, models.StatePendingRetry:
			to = models.StateWithdrawn
		case models.StateL2Review, models.StateL3Review:
			to = models.StateWithdrawnByStakeholder
		default:
			// Frozen reports like any other late stage.
			return dErrors.New(dErrors.CodeInvalidState, "request can no longer be withdrawn")
		}
		s.decideClosed(req, c, models.OutcomeWithdrawn, "withdrawn by the stakeholder", "")
		return c.transition(req, to, "withdrawn by the stakeholder", nil)
	})
}

// Expire closes a request that outlived its processing window.
func (s *Service) Expire(ctx context.Context, refundID id.RefundID, reason string) (*models.RefundRequest, error) {
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if !models.CanTransition(req.State, models.StateExpired) {
			return dErrors.New(dErrors.CodeInvalidState, "request cannot expire from its current state")
		}
		s.decideClosed(req, c, models.OutcomeExpired, reason, policy.ClauseLimitation)
		return c.transition(req, models.StateExpired, reason, nil)
	})
}

func (s *Service) decideClosed(req *models.RefundRequest, c *change, outcome models.Outcome, reason, clause string) {
	req.Decision = &models.DecisionRecord{
		Outcome:       outcome,
		Tier:          req.State.Tier(),
		Claimed:       req.Amount,
		Reason:        reason,
		Clause:        clause,
		PolicyVersion: req.PolicyVersion,
		DecidedBy:     c.actor,
		DecidedAt:     c.now,
		Checkpoints:   req.Checkpoints,
	}
	c.record(audit.ActionDecision, "", "", reason, map[string]string{"outcome": string(outcome)})
	s.metrics.IncDecision(string(outcome), strconv.Itoa(req.State.Tier()))
}

// Disburse records the completed payout. Interest for a late payout is
// appended as an amendment; the decision itself is never rewritten.
func (s *Service) Disburse(ctx context.Context, refundID id.RefundID, reference string) (*models.RefundRequest, error) {
	if reference == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "payment reference is required")
	}
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if req.State != models.StateDisbursing || req.Disbursement == nil {
			return dErrors.New(dErrors.CodeInvalidState, "request is not being disbursed")
		}
		d := req.Disbursement
		if err := s.scheduler.Complete(d, reference, c.now); err != nil {
			if errors.Is(err, disbursement.ErrAlreadyCompleted) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "disbursement already completed")
			}
			return translate(err)
		}
		if d.AccruedInterest.IsPositive() {
			s.amend(req, c, models.Amendment{
				Reason:   "delay interest on late disbursement",
				Interest: d.AccruedInterest,
				Payable:  d.Payable,
				Rate:     d.Rate,
				At:       c.now,
				By:       c.actor,
			})
		}
		at := c.now
		req.Checkpoints.DisbursedAt = &at
		return c.transition(req, models.StateApproved, "payout completed", map[string]string{
			"reference": reference,
			"paid":      d.Payable.String(),
		})
	})
}

// EscalateDisbursement moves an overdue payout to the next interest bucket.
func (s *Service) EscalateDisbursement(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if req.State != models.StateDisbursing {
			return dErrors.New(dErrors.CodeInvalidState, "request is not being disbursed")
		}
		a, ok := s.scheduler.Escalate(req.Disbursement, c.now)
		if !ok {
			return nil
		}
		s.amend(req, c, a)
		return nil
	})
}

func (s *Service) amend(req *models.RefundRequest, c *change, a models.Amendment) {
	req.Amendments = append(req.Amendments, a)
	c.record(audit.ActionAmendment, "", "", a.Reason, map[string]string{
		"interest": a.Interest.String(),
		"payable":  a.Payable.String(),
		"rate":     a.Rate.String(),
		"at":       a.At.Format(time.RFC3339),
	})
}
