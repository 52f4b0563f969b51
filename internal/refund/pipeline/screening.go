package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"adjudicator/internal/eligibility"
	"adjudicator/internal/external"
	"adjudicator/internal/notify"
	"adjudicator/internal/policy"
	"adjudicator/internal/refund/models"
	"adjudicator/internal/screening"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/platform/sentinel"
)

// L1 outcome labels.
const (
	outcomePass       = "pass"
	outcomeFlagged    = "flagged"
	outcomeAutoReject = "auto_reject"
	outcomeFrozen     = "frozen"
	outcomeParked     = "parked"
)

// Screen runs automated L1 screening: duplicate check, evidence integrity,
// then eligibility and AML screening side by side. Nothing is decided until
// both have answered.
func (s *Service) Screen(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.Screen")
	defer span.End()
	span.SetAttributes(attribute.String("refund.id", refundID.String()))

	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		switch req.State {
		case models.StateAcknowledged, models.StatePendingRetry:
			if err := c.transition(req, models.StateL1Screening, "automated screening started", nil); err != nil {
				return err
			}
		case models.StateL1Screening:
		default:
			return dErrors.New(dErrors.CodeInvalidState,
				fmt.Sprintf("request in %s cannot be screened", req.State))
		}
		outcome, err := s.screenL1(ctx, req, c)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("l1.outcome", outcome))
		return nil
	})
}

// Retry takes a parked request back through L1.
func (s *Service) Retry(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	req, err := s.store.Get(ctx, refundID)
	if err != nil {
		return nil, translate(err)
	}
	if req.State != models.StatePendingRetry {
		return nil, dErrors.New(dErrors.CodeInvalidState, "request is not waiting for a retry")
	}
	return s.Screen(ctx, refundID)
}

type l1Result struct {
	duplicate   *models.RefundRequest
	eligibility *models.EligibilityVerdict
	rulesErr    error
	risk        models.RiskVerdict
	riskErr     error
	docsErr     error
}

func (s *Service) screenL1(ctx context.Context, req *models.RefundRequest, c *change) (string, error) {
	start := time.Now()
	var res l1Result

	dup, err := s.store.FindPriorOpen(ctx, req)
	switch {
	case err == nil:
		res.duplicate = dup
	case !errors.Is(err, sentinel.ErrNotFound):
		return "", translate(fmt.Errorf("duplicate check: %w", err))
	}

	res.docsErr = s.verifyEvidence(ctx, req, c)

	var g errgroup.Group
	g.Go(func() error {
		v, err := s.evaluate(req)
		res.eligibility, res.rulesErr = v, err
		return nil
	})
	g.Go(func() error {
		res.risk, res.riskErr = s.screener.ScreenRequest(ctx, s.screeningInput(req))
		return nil
	})
	_ = g.Wait()

	outcome := s.decideL1(ctx, req, c, res)
	s.metrics.ObserveL1(outcome, since(start))
	s.logger.InfoContext(ctx, "L1 screening completed",
		"refund_id", req.ID.String(),
		"outcome", outcome,
		"state", string(req.State),
	)
	return outcome, nil
}

// evaluate runs the rules engine. A panic is contained and reported as an
// error so that a rules defect can only ever route to human review.
func (s *Service) evaluate(req *models.RefundRequest) (v *models.EligibilityVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("eligibility evaluation panicked: %v", r)
		}
	}()
	verdict := s.rules.Evaluate(eligibility.Input{
		Category:    req.Category,
		Stage:       req.Stage,
		Grounds:     req.Grounds,
		Amount:      req.Amount,
		Facts:       req.Facts,
		SubmittedAt: req.SubmittedAt,
	})
	return &verdict, nil
}

func (s *Service) screeningInput(req *models.RefundRequest) screening.Input {
	payout := req.PayoutAccount
	if payout == "" {
		payout = req.Facts.SourceAccount
	}
	return screening.Input{
		StakeholderID: req.StakeholderID,
		Amount:        req.Amount,
		PayoutAccount: payout,
		SourceAccount: req.Facts.SourceAccount,
		Cleared:       req.ClearedIndicators,
	}
}

// verifyEvidence checks every stored document against its upload digest.
// Missing or altered content marks the document forged. It returns the first
// availability failure, if any.
func (s *Service) verifyEvidence(ctx context.Context, req *models.RefundRequest, c *change) error {
	for i := range req.Evidence {
		ref := &req.Evidence[i]
		if ref.Status == models.EvidenceRejectedForged {
			continue
		}
		ok, err := s.docs.VerifyIntegrity(ctx, ref.ID)
		switch {
		case err != nil && isNotFound(err):
			ok = false
		case err != nil:
			return err
		}
		if ok {
			ref.Status = models.EvidenceVerified
			continue
		}
		ref.Status = models.EvidenceRejectedForged
		req.AddFlag(models.FlagForgedEvidence)
		c.record(audit.ActionEvidenceAttached, "", "", "document failed integrity check", map[string]string{
			"evidence_id": ref.ID.String(),
			"type":        string(ref.Type),
			"status":      string(ref.Status),
		})
	}
	return nil
}

func (s *Service) decideL1(ctx context.Context, req *models.RefundRequest, c *change, res l1Result) string {
	now := c.now
	req.Eligibility = res.eligibility
	if res.riskErr == nil {
		risk := res.risk
		req.Risk = &risk
	}
	if req.HasGround(models.GroundFraudMisrepresentation) {
		req.AddFlag(models.FlagFraudGround)
	}
	if thirdPartyPayout(req) {
		req.AddFlag(models.FlagThirdPartyPayout)
	}

	// Infrastructure outages park the request; they never decide it.
	if unavailable := firstUnavailable(res.riskErr, res.docsErr); unavailable != nil {
		s.park(req, c, unavailable)
		return outcomeParked
	}

	if res.riskErr == nil && res.risk.Level == models.RiskSuspicious {
		s.freeze(req, c, res.risk, "suspicious screening verdict")
		return outcomeFrozen
	}

	if reason, clause, ok := s.autoReject(req, res); ok {
		s.decideReject(req, c, 1, reason, clause, nil)
		_ = c.transition(req, models.StateL1AutoReject, reason, map[string]string{"clause": clause})
		s.completeL1(req, now)
		return outcomeAutoReject
	}

	var diagnostics []string
	if res.rulesErr != nil {
		req.AddFlag(models.FlagL1InternalError)
		diagnostics = append(diagnostics, "eligibility: "+res.rulesErr.Error())
		s.logger.ErrorContext(ctx, "eligibility evaluation failed",
			"refund_id", req.ID.String(),
			"error", res.rulesErr,
		)
	}
	switch {
	case res.riskErr == nil:
	case isNotFound(res.riskErr):
		req.AddFlag(models.FlagUnknownProfile)
		diagnostics = append(diagnostics, "stakeholder not found in registry")
	default:
		req.AddFlag(models.FlagL1InternalError)
		diagnostics = append(diagnostics, "screening: "+res.riskErr.Error())
		s.logger.ErrorContext(ctx, "screening failed",
			"refund_id", req.ID.String(),
			"error", res.riskErr,
		)
	}
	if res.docsErr != nil {
		req.AddFlag(models.FlagL1InternalError)
		diagnostics = append(diagnostics, "documents: "+res.docsErr.Error())
	}
	if req.Risk != nil && req.Risk.Level == models.RiskEDDRequired {
		req.AddFlag(models.FlagEDDRequired)
	}
	if req.Eligibility != nil && req.Eligibility.Outcome == models.Conditional {
		req.AddFlag(models.FlagConditional)
	}

	outcome, next := outcomePass, models.StateL1Pass
	if l1Flagged(req) {
		outcome, next = outcomeFlagged, models.StateL1Flagged
	}
	inputs := map[string]string{"flags": strings.Join(req.Flags, ",")}
	if req.Eligibility != nil {
		inputs["eligibility"] = string(req.Eligibility.Outcome)
		inputs["rule_id"] = req.Eligibility.RuleID
	}
	if len(diagnostics) > 0 {
		inputs["diagnostics"] = strings.Join(diagnostics, "; ")
	}
	_ = c.transition(req, next, "automated screening complete", inputs)
	s.completeL1(req, now)
	_ = s.assign(ctx, req, c)
	return outcome
}

func (s *Service) completeL1(req *models.RefundRequest, now time.Time) {
	at := now
	req.Checkpoints.L1CompletedAt = &at
}

func l1Flagged(req *models.RefundRequest) bool {
	for _, f := range []string{
		models.FlagL1InternalError,
		models.FlagForgedEvidence,
		models.FlagEDDRequired,
		models.FlagConditional,
		models.FlagUnknownProfile,
	} {
		if req.HasFlag(f) {
			return true
		}
	}
	return false
}

// autoReject returns the rejection for claims that need no human judgement:
// duplicates, time-barred or ineligible claims, and missing mandatory evidence.
func (s *Service) autoReject(req *models.RefundRequest, res l1Result) (reason, clause string, ok bool) {
	if res.duplicate != nil {
		return "an open refund request already exists for this transaction", policy.ClauseDuplicateRequest, true
	}
	if s.timeBarred(req) {
		return "claim raised after the limitation period for the transaction category", policy.ClauseLimitation, true
	}
	if v := res.eligibility; v != nil && v.Outcome == models.Ineligible {
		return v.Reason, v.Clause, true
	}
	if missing := missingEvidence(req, attachedAny); len(missing) > 0 {
		return "mandatory documentation missing: " + joinTypes(missing), policy.ClauseMandatoryDocuments, true
	}
	return "", "", false
}

// timeBarred is checked independently of the full evaluation so that a rules
// failure cannot let a time-barred claim through to review.
func (s *Service) timeBarred(req *models.RefundRequest) (barred bool) {
	defer func() {
		if recover() != nil {
			barred = false
		}
	}()
	return s.rules.TimeBarred(req.Category, req.Facts.TransactedAt, req.SubmittedAt)
}

// mandatoryEvidence lists the document types a claim must carry.
func mandatoryEvidence(req *models.RefundRequest) []models.EvidenceType {
	out := []models.EvidenceType{
		models.EvidenceIdentity,
		models.EvidenceTransactionProof,
		models.EvidenceBankProof,
	}
	if req.HasGround(models.GroundFraudMisrepresentation) || req.HasGround(models.GroundIssuerCancellation) {
		out = append(out, models.EvidenceGroundSpecific)
	}
	if thirdPartyPayout(req) {
		out = append(out, models.EvidenceAuthorization)
	}
	return out
}

// attachedAny counts a document whatever its verification status; a forged
// document is flagged for review rather than treated as absent.
func attachedAny(req *models.RefundRequest, t models.EvidenceType) bool {
	for _, e := range req.Evidence {
		if e.Type == t {
			return true
		}
	}
	return false
}

func attachedValid(req *models.RefundRequest, t models.EvidenceType) bool {
	return req.HasEvidence(t)
}

func missingEvidence(req *models.RefundRequest, has func(*models.RefundRequest, models.EvidenceType) bool) []models.EvidenceType {
	var missing []models.EvidenceType
	for _, t := range mandatoryEvidence(req) {
		if !has(req, t) {
			missing = append(missing, t)
		}
	}
	return missing
}

func joinTypes(ts []models.EvidenceType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func thirdPartyPayout(req *models.RefundRequest) bool {
	return req.PayoutAccount != "" && req.PayoutAccount != req.Facts.SourceAccount
}

// park moves the request to PendingRetry and raises an operator task.
func (s *Service) park(req *models.RefundRequest, c *change, cause error) {
	req.RetryCount++
	collaborator := "collaborator"
	var ee *external.Error
	if errors.As(cause, &ee) {
		collaborator = ee.Collaborator
	}
	_ = c.transition(req, models.StatePendingRetry, "collaborator unavailable", map[string]string{
		"collaborator": collaborator,
	})
	details := map[string]string{
		"collaborator": collaborator,
		"retry_count":  strconv.Itoa(req.RetryCount),
	}
	c.record(audit.ActionParked, "", "", cause.Error(), details)
	c.task(notify.TaskParkedForRetry, req.ID, collaborator+" unavailable during screening", details)
	s.metrics.IncParked()
}

// freeze holds the request and files the confidential suspicion report.
// Nothing about the hold reaches the public stream.
func (s *Service) freeze(req *models.RefundRequest, c *change, verdict models.RiskVerdict, rationale string) {
	detectedIn := req.State
	req.Risk = &verdict
	_ = c.transition(req, models.StateFrozen, rationale, map[string]string{
		"risk_level":   string(verdict.Level),
		"score":        strconv.Itoa(verdict.Score),
		"indicators":   strings.Join(verdict.IndicatorCodes(), ","),
		"list_version": verdict.ListVersion,
	})
	report := notify.SuspicionReport{
		ReportID:      uuid.New(),
		RefundID:      req.ID,
		StakeholderID: req.StakeholderID,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Indicators:    verdict.Indicators,
		ListVersion:   verdict.ListVersion,
		DetectedIn:    detectedIn,
		DetectedAt:    c.now,
	}
	c.reports = append(c.reports, report)
	c.record(audit.ActionReportFiled, "", "", "suspicious transaction report filed", map[string]string{
		"report_id": report.ReportID.String(),
	})
}

func firstUnavailable(errs ...error) error {
	for _, err := range errs {
		if err != nil && isUnavailable(err) {
			return err
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return external.IsNotFound(err) || errors.Is(err, sentinel.ErrNotFound)
}

func isUnavailable(err error) bool {
	return external.IsUnavailable(err) ||
		errors.Is(err, sentinel.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
