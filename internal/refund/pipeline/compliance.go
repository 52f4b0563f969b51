package pipeline

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"adjudicator/internal/notify"
	"adjudicator/internal/policy"
	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	audit "adjudicator/pkg/platform/audit"
)

// ClearanceInput is the external compliance outcome for a Frozen request.
type ClearanceInput struct {
	// Cleared releases the hold; false upholds it and rejects the request.
	Cleared   bool
	Reference string
}

func requireCompliance(ctx context.Context) (id.ReviewerID, error) {
	rid, role, err := reviewer(ctx)
	if err != nil {
		return id.ReviewerID{}, err
	}
	if role != models.RoleCompliance && role != models.RoleSenior {
		return id.ReviewerID{}, dErrors.New(dErrors.CodeForbidden, "compliance role required")
	}
	return rid, nil
}

// Rescreen screens an open request again, e.g. after a list update. A
// suspicious verdict freezes it from whatever state it is in.
func (s *Service) Rescreen(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if req.State.IsTerminal() || req.State == models.StateFrozen {
			return dErrors.New(dErrors.CodeInvalidState, "request cannot be rescreened")
		}
		verdict, err := s.screener.ScreenRequest(ctx, s.screeningInput(req))
		if err != nil {
			return translate(err)
		}
		c.confidential(audit.ActionRescreened, "screening repeated", map[string]string{
			"risk_level":   string(verdict.Level),
			"score":        strconv.Itoa(verdict.Score),
			"list_version": verdict.ListVersion,
		})
		if verdict.Level == models.RiskSuspicious {
			s.freeze(req, c, verdict, "suspicious verdict on rescreening")
			return nil
		}
		req.Risk = &verdict
		if verdict.Level == models.RiskEDDRequired {
			req.AddFlag(models.FlagEDDRequired)
		}
		return nil
	})
}

// Clear applies the compliance outcome to a Frozen request. A cleared hold
// resumes per the configured policy with the resolved indicators excluded
// from later screening; an upheld hold rejects under regulatory obligations.
func (s *Service) Clear(ctx context.Context, refundID id.RefundID, in ClearanceInput) (*models.RefundRequest, error) {
	officer, err := requireCompliance(ctx)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if req.State != models.StateFrozen {
			return dErrors.New(dErrors.CodeInvalidState, "request is not held")
		}
		req.Clearances = append(req.Clearances, models.Clearance{
			Officer:    officer,
			Cleared:    in.Cleared,
			Reference:  in.Reference,
			RecordedAt: c.now,
		})
		c.record(audit.ActionClearance, "", "", "compliance outcome recorded", map[string]string{
			"cleared":   strconv.FormatBool(in.Cleared),
			"reference": in.Reference,
		})

		if !in.Cleared {
			s.decideReject(req, c, req.PriorState.Tier(),
				"declined in line with the platform's legal obligations", policy.ClauseRegulatoryObligations, nil)
			return c.transition(req, models.StateRejected, "hold upheld", nil)
		}

		if req.Risk != nil {
			for _, k := range req.Risk.IndicatorKeys() {
				if !slices.Contains(req.ClearedIndicators, k) {
					req.ClearedIndicators = append(req.ClearedIndicators, k)
				}
			}
		}
		target := s.resumeTarget(req)
		if err := c.transition(req, target, "hold cleared", map[string]string{
			"resume_policy": string(s.cfg.FrozenResume),
			"cleared":       strings.Join(req.ClearedIndicators, ","),
		}); err != nil {
			return err
		}
		if target == models.StateL1Screening {
			c.then = func(ctx context.Context) (*models.RefundRequest, error) {
				return s.Screen(ctx, refundID)
			}
		}
		return nil
	})
}

// resumeTarget picks where a cleared request continues.
func (s *Service) resumeTarget(req *models.RefundRequest) models.State {
	if s.cfg.FrozenResume == ResumeRestartL1 {
		return models.StateL1Screening
	}
	switch req.PriorState {
	case "", models.StateL1Pass, models.StateL1Flagged:
		return models.StateL1Screening
	}
	if models.CanTransition(models.StateFrozen, req.PriorState) {
		return req.PriorState
	}
	return models.StateL1Screening
}

// AlertFrozen raises one operator alert per hold that has outlived age.
func (s *Service) AlertFrozen(ctx context.Context, refundID id.RefundID, age time.Duration) (*models.RefundRequest, error) {
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if req.State != models.StateFrozen || c.now.Sub(req.StateEnteredAt) < age {
			return nil
		}
		if req.AlertRaised(models.AlertFrozen) {
			return nil
		}
		req.RaiseAlert(models.AlertFrozen, c.now)
		c.confidential(audit.ActionAlert, "hold awaiting compliance outcome", map[string]string{
			"held_since": req.StateEnteredAt.Format(time.RFC3339),
		})
		c.task(notify.TaskFrozenOverdue, req.ID, "compliance hold overdue", map[string]string{
			"held_since": req.StateEnteredAt.Format(time.RFC3339),
		})
		return nil
	})
}
