package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"adjudicator/internal/disbursement"
	"adjudicator/internal/notify"
	"adjudicator/internal/policy"
	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/requestcontext"
)

// ReviewInput is an L2 reviewer's recommendation.
type ReviewInput struct {
	Recommendation        models.Recommendation
	AuthenticityConfirmed bool
	Clause                string
	Notes                 string
}

// VoteInput is one committee member's L3 vote.
type VoteInput struct {
	Approve   bool
	Rationale string
}

// SignOffInput is the named approver's release.
type SignOffInput struct {
	// AccountOverride approves a payout to an account other than the source.
	AccountOverride bool
}

// reviewer resolves the caller as an internal reviewer.
func reviewer(ctx context.Context) (id.ReviewerID, models.Role, error) {
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		return id.ReviewerID{}, "", dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	rid, err := id.ParseReviewerID(caller.Subject)
	if err != nil {
		return id.ReviewerID{}, "", dErrors.New(dErrors.CodeForbidden, "caller is not a reviewer")
	}
	return rid, models.Role(caller.Role), nil
}

// assign hands the request to the reviewer with the fewest open assignments.
// Ties rotate so equally loaded reviewers share new work.
func (s *Service) assign(ctx context.Context, req *models.RefundRequest, c *change) error {
	if err := c.transition(req, models.StateL2Review, "routed to manual review", nil); err != nil {
		return err
	}
	reviewers := s.cfg.Reviewers
	if len(reviewers) == 0 {
		return nil
	}
	load, err := s.store.AssigneeLoad(ctx, reviewers)
	if err != nil {
		// Unassigned requests stay in the shared L2 queue.
		s.logger.WarnContext(ctx, "reviewer load unavailable",
			"refund_id", req.ID.String(),
			"error", err,
		)
		return nil
	}
	start := int(s.rr.Add(1)-1) % len(reviewers)
	pick := reviewers[start]
	for k := 1; k < len(reviewers); k++ {
		r := reviewers[(start+k)%len(reviewers)]
		if load[r] < load[pick] {
			pick = r
		}
	}
	req.Assignee = pick
	c.record(audit.ActionAssigned, "", "", "assigned by open workload", map[string]string{
		"reviewer":   pick.String(),
		"open_count": strconv.Itoa(load[pick]),
	})
	return nil
}

// RecordReview records the L2 recommendation and acts on it. High-value,
// fraud, EDD and SLA-breached requests go to L3 whatever the recommendation.
func (s *Service) RecordReview(ctx context.Context, refundID id.RefundID, in ReviewInput) (*models.RefundRequest, error) {
	rid, role, err := reviewer(ctx)
	if err != nil {
		return nil, err
	}
	switch in.Recommendation {
	case models.RecommendApprove, models.RecommendReject, models.RecommendEscalate:
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "recommendation must be approve, reject or escalate")
	}

	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if req.State != models.StateL2Review {
			return dErrors.New(dErrors.CodeInvalidState, "request is not awaiting L2 review")
		}
		if !req.Assignee.IsNil() && req.Assignee != rid && role != models.RoleSenior {
			return dErrors.New(dErrors.CodeForbidden, "request is assigned to another reviewer")
		}
		if in.Recommendation == models.RecommendApprove {
			if !in.AuthenticityConfirmed {
				return dErrors.New(dErrors.CodeValidation, "approval requires confirmed document authenticity")
			}
			if missing := missingEvidence(req, attachedValid); len(missing) > 0 {
				return dErrors.New(dErrors.CodeValidation, "mandatory documentation missing: "+joinTypes(missing))
			}
		}

		req.Review = &models.Review{
			Reviewer:              rid,
			Recommendation:        in.Recommendation,
			AuthenticityConfirmed: in.AuthenticityConfirmed,
			Clause:                in.Clause,
			Notes:                 in.Notes,
			RecordedAt:            c.now,
		}
		at := c.now
		req.Checkpoints.L2CompletedAt = &at
		c.record(audit.ActionReviewRecorded, "", "", in.Notes, map[string]string{
			"recommendation": string(in.Recommendation),
			"authenticity":   strconv.FormatBool(in.AuthenticityConfirmed),
			"clause":         in.Clause,
		})

		payable := s.payable(req, c.now)
		if reasons := s.mandatoryL3(req, payable); len(reasons) > 0 {
			return c.transition(req, models.StateL3Review, "mandatory committee review", map[string]string{
				"triggers":       strings.Join(reasons, ","),
				"recommendation": string(in.Recommendation),
				"payable":        payable.String(),
			})
		}

		switch in.Recommendation {
		case models.RecommendEscalate:
			return c.transition(req, models.StateL3Review, "escalated by reviewer", nil)
		case models.RecommendReject:
			clause := in.Clause
			if clause == "" {
				clause = policy.ClauseReviewerDetermination
			}
			reason := in.Notes
			if reason == "" {
				reason = "declined at manual review"
			}
			s.decideReject(req, c, 2, reason, clause, nil)
			return c.transition(req, models.StateRejected, reason, map[string]string{"clause": clause})
		}
		return s.approve(ctx, req, c, 2, nil)
	})
}

// mandatoryL3 lists the triggers that force committee review.
func (s *Service) mandatoryL3(req *models.RefundRequest, payable decimal.Decimal) []string {
	var out []string
	if payable.GreaterThan(s.cfg.HighValueThreshold) {
		out = append(out, "high_value")
	}
	if req.HasGround(models.GroundFraudMisrepresentation) {
		out = append(out, "fraud_ground")
	}
	if req.HasFlag(models.FlagEDDRequired) || (req.Risk != nil && req.Risk.Level == models.RiskEDDRequired) {
		out = append(out, "edd_required")
	}
	if req.HasFlag(models.FlagL2SLABreached) {
		out = append(out, "l2_sla_breached")
	}
	return out
}

// RecordVote records a committee vote. Once finance, compliance and legal
// have all voted the majority of votes cast decides; a tie rejects.
func (s *Service) RecordVote(ctx context.Context, refundID id.RefundID, in VoteInput) (*models.RefundRequest, error) {
	rid, role, err := reviewer(ctx)
	if err != nil {
		return nil, err
	}
	if !role.IsCommittee() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only committee members vote at L3")
	}

	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if req.State != models.StateL3Review {
			return dErrors.New(dErrors.CodeInvalidState, "request is not awaiting committee review")
		}
		if _, voted := req.VoteFor(role); voted {
			return dErrors.New(dErrors.CodeConflict, "a vote for this role is already recorded")
		}
		vote := models.Vote{Member: rid, Role: role, Approve: in.Approve, Rationale: in.Rationale, CastAt: c.now}
		req.Votes = append(req.Votes, vote)
		c.record(audit.ActionVoteRecorded, "", "", in.Rationale, map[string]string{
			"role":    string(role),
			"approve": strconv.FormatBool(in.Approve),
		})

		for _, r := range models.CommitteeRoles {
			if _, ok := req.VoteFor(r); !ok {
				return nil
			}
		}
		at := c.now
		req.Checkpoints.L3CompletedAt = &at

		approve, dissent := tally(req.Votes)
		if approve {
			return s.approve(ctx, req, c, 3, dissent)
		}
		s.decideReject(req, c, 3, "declined by the review committee", policy.ClauseReviewerDetermination, dissent)
		return c.transition(req, models.StateRejected, "committee majority to reject", map[string]string{
			"clause": policy.ClauseReviewerDetermination,
		})
	})
}

// tally returns the committee outcome and the dissenting votes.
func tally(votes []models.Vote) (bool, []models.Vote) {
	yes := 0
	for _, v := range votes {
		if v.Approve {
			yes++
		}
	}
	approve := yes*2 > len(votes)
	var dissent []models.Vote
	for _, v := range votes {
		if v.Approve != approve {
			dissent = append(dissent, v)
		}
	}
	return approve, dissent
}

// SignOff records the named approver's release. A request held for sign-off
// proceeds to disbursement.
func (s *Service) SignOff(ctx context.Context, refundID id.RefundID, in SignOffInput) (*models.RefundRequest, error) {
	rid, _, err := reviewer(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(s.cfg.NamedApprovers, rid) {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not a named approver")
	}

	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if req.State != models.StateL2Review && req.State != models.StateL3Review {
			return dErrors.New(dErrors.CodeInvalidState, "request is not under review")
		}
		req.SignOff = &models.SignOff{Approver: rid, AccountOverride: in.AccountOverride, SignedAt: c.now}
		c.record(audit.ActionSignOff, "", "", "named approver sign-off", map[string]string{
			"approver":         rid.String(),
			"account_override": strconv.FormatBool(in.AccountOverride),
		})
		if !req.HasFlag(models.FlagAwaitingSignOff) {
			return nil
		}
		req.RemoveFlag(models.FlagAwaitingSignOff)
		var dissent []models.Vote
		if req.State == models.StateL3Review {
			_, dissent = tally(req.Votes)
		}
		return s.approve(ctx, req, c, req.State.Tier(), dissent)
	})
}

// approve takes an approval through the sign-off gate and a fresh screening,
// then opens the disbursement. A suspicious rescreen freezes the request
// instead; an unavailable screener fails the operation with nothing written.
func (s *Service) approve(ctx context.Context, req *models.RefundRequest, c *change, tier int, dissent []models.Vote) error {
	payable := s.payable(req, c.now)
	if (payable.GreaterThan(s.cfg.SignOffThreshold) || thirdPartyPayout(req)) && req.SignOff == nil {
		req.AddFlag(models.FlagAwaitingSignOff)
		c.record(audit.ActionAlert, "", "", "approval awaiting named sign-off", map[string]string{
			"payable": payable.String(),
		})
		return nil
	}

	verdict, err := s.screener.ScreenRequest(ctx, s.screeningInput(req))
	if err != nil {
		return translate(fmt.Errorf("pre-disbursement screening: %w", err))
	}
	req.Risk = &verdict
	switch verdict.Level {
	case models.RiskSuspicious:
		s.freeze(req, c, verdict, "suspicious verdict on pre-disbursement screening")
		return nil
	case models.RiskEDDRequired:
		req.AddFlag(models.FlagEDDRequired)
		if tier < 3 {
			return c.transition(req, models.StateL3Review, "enhanced due diligence required", nil)
		}
	}

	var deductions []models.Deduction
	clause := policy.ClauseReviewerDetermination
	if req.Eligibility != nil {
		deductions = req.Eligibility.Deductions
		if req.Eligibility.Clause != "" {
			clause = req.Eligibility.Clause
		}
	}
	at := c.now
	req.Checkpoints.ApprovedAt = &at
	req.Decision = &models.DecisionRecord{
		Outcome:       models.OutcomeApproved,
		Tier:          tier,
		Claimed:       req.Amount,
		Deductions:    slices.Clone(deductions),
		Payable:       payable,
		Reason:        fmt.Sprintf("approved at tier %d", tier),
		Clause:        clause,
		PolicyVersion: req.PolicyVersion,
		Dissent:       dissent,
		DecidedBy:     c.actor,
		DecidedAt:     c.now,
		Checkpoints:   req.Checkpoints,
	}
	d, err := s.scheduler.Open(req, c.now)
	if err != nil {
		if errors.Is(err, disbursement.ErrUnverifiedAccount) {
			return dErrors.Wrap(err, dErrors.CodeValidation, "payout account requires an approved override")
		}
		return translate(err)
	}
	req.Disbursement = d
	c.record(audit.ActionDecision, "", "", req.Decision.Reason, map[string]string{
		"outcome":  string(models.OutcomeApproved),
		"tier":     strconv.Itoa(tier),
		"payable":  payable.String(),
		"clause":   s.policies.Cite(req.PolicyVersion, clause),
		"sla_due":  d.SLADueAt.Format(time.DateOnly),
		"dissents": strconv.Itoa(len(dissent)),
	})
	s.metrics.IncDecision(string(models.OutcomeApproved), strconv.Itoa(tier))
	return c.transition(req, models.StateDisbursing, "approved for disbursement", nil)
}

// decideReject writes the rejection decision. The caller transitions.
func (s *Service) decideReject(req *models.RefundRequest, c *change, tier int, reason, clause string, dissent []models.Vote) {
	req.Decision = &models.DecisionRecord{
		Outcome:       models.OutcomeRejected,
		Tier:          tier,
		Claimed:       req.Amount,
		Payable:       decimal.Zero,
		Reason:        reason,
		Clause:        clause,
		PolicyVersion: req.PolicyVersion,
		Dissent:       dissent,
		DecidedBy:     c.actor,
		DecidedAt:     c.now,
		Checkpoints:   req.Checkpoints,
	}
	c.record(audit.ActionDecision, "", "", reason, map[string]string{
		"outcome": string(models.OutcomeRejected),
		"tier":    strconv.Itoa(tier),
		"clause":  s.policies.Cite(req.PolicyVersion, clause),
	})
	s.metrics.IncDecision(string(models.OutcomeRejected), strconv.Itoa(tier))
}

// payable is the amount owed if approved now.
func (s *Service) payable(req *models.RefundRequest, now time.Time) decimal.Decimal {
	var deductions []models.Deduction
	if req.Eligibility != nil {
		deductions = req.Eligibility.Deductions
	}
	interest := disbursement.EntitlementInterest(req.Eligibility, req.Amount, now)
	return disbursement.Payable(req.Amount, deductions, interest)
}

// Escalate handles a review SLA breach. A late L2 review goes to the
// committee; a late committee raises an operator alert once per breach.
func (s *Service) Escalate(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		switch req.State {
		case models.StateL2Review:
			req.AddFlag(models.FlagL2SLABreached)
			return c.transition(req, models.StateL3Review, "L2 review SLA breached", nil)
		case models.StateL3Review:
			if req.AlertRaised(models.AlertL3SLA) {
				return nil
			}
			req.RaiseAlert(models.AlertL3SLA, c.now)
			c.record(audit.ActionAlert, "", "", "committee review SLA breached", nil)
			c.task(notify.TaskL3SLABreach, req.ID, "committee review overdue", map[string]string{
				"entered_at": req.StateEnteredAt.Format(time.RFC3339),
			})
			return nil
		}
		return dErrors.New(dErrors.CodeInvalidState, "request is not under review")
	})
}
