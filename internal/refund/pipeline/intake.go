package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"adjudicator/internal/evidence/documents"
	"adjudicator/internal/notify"
	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/requestcontext"
)

// DocumentInput is one evidence artifact supplied by the stakeholder.
type DocumentInput struct {
	Type        models.EvidenceType
	Filename    string
	ContentType string
	Content     []byte
}

// SubmitInput is a new refund claim.
type SubmitInput struct {
	StakeholderID id.StakeholderID
	TransactionID id.TransactionID
	Category      models.Category
	Stage         models.Stage
	Grounds       []models.Ground
	Amount        decimal.Decimal
	Facts         models.TransactionFacts
	PayoutAccount id.AccountID
	Documents     []DocumentInput
}

func (in SubmitInput) validate() error {
	if in.StakeholderID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "stakeholder_id is required")
	}
	if in.TransactionID == "" {
		return dErrors.New(dErrors.CodeValidation, "transaction_id is required")
	}
	if _, err := models.ParseCategory(string(in.Category)); err != nil {
		return err
	}
	if _, err := models.ParseStage(string(in.Stage)); err != nil {
		return err
	}
	if len(in.Grounds) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one ground is required")
	}
	for _, g := range in.Grounds {
		if _, err := models.ParseGround(string(g)); err != nil {
			return err
		}
	}
	if !in.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if in.Facts.TransactedAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "transacted_at is required")
	}
	for _, d := range in.Documents {
		if err := d.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (d DocumentInput) validate() error {
	if _, err := models.ParseEvidenceType(string(d.Type)); err != nil {
		return err
	}
	if len(d.Content) == 0 {
		return dErrors.New(dErrors.CodeValidation, "document content is empty")
	}
	if len(d.Content) > documents.MaxSize {
		return dErrors.New(dErrors.CodeValidation, "document exceeds the maximum size")
	}
	return nil
}

// Submit records a new claim in Received. The policy version in force at
// submission governs the request for its whole life.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.RefundRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, in.StakeholderID); err != nil {
		return nil, err
	}

	c := newChange(ctx)
	if in.Facts.TransactedAt.After(c.now) {
		return nil, dErrors.New(dErrors.CodeValidation, "transacted_at is in the future")
	}
	doc, err := s.policies.ForDate(c.now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "no refund policy in force")
	}

	req := &models.RefundRequest{
		ID:             id.NewRefundID(),
		StakeholderID:  in.StakeholderID,
		TransactionID:  in.TransactionID,
		Category:       in.Category,
		Stage:          in.Stage,
		Grounds:        slices.Clone(in.Grounds),
		Amount:         in.Amount,
		Facts:          in.Facts,
		PayoutAccount:  in.PayoutAccount,
		PolicyVersion:  doc.Version,
		SubmittedAt:    c.now,
		State:          models.StateReceived,
		StateEnteredAt: c.now,
		Alerts:         map[string]time.Time{},
		Checkpoints:    models.Checkpoints{SubmittedAt: c.now},
	}
	c.record(audit.ActionSubmitted, "", models.StateReceived, "claim received", map[string]string{
		"transaction_id": string(req.TransactionID),
		"category":       string(req.Category),
		"amount":         req.Amount.String(),
		"policy_version": req.PolicyVersion,
	})
	if ev, ok := notify.NewStateChanged(req.ID, "", models.StateReceived, c.now); ok {
		c.events = append(c.events, ev)
	}

	for _, d := range in.Documents {
		if err := s.attach(ctx, req, c, d); err != nil {
			return nil, err
		}
	}

	if err := s.commit(ctx, req, 0, c); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "refund submitted",
		"refund_id", req.ID.String(),
		"category", string(req.Category),
		"evidence_count", len(req.Evidence),
	)
	return req, nil
}

// Attach adds evidence to an open request. Documents cannot be added once
// the payout is under way.
func (s *Service) Attach(ctx context.Context, refundID id.RefundID, in DocumentInput) (*models.RefundRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if err := s.requireOwner(ctx, req.StakeholderID); err != nil {
			return err
		}
		if req.State.IsTerminal() || req.State == models.StateDisbursing {
			return dErrors.New(dErrors.CodeInvalidState, "evidence can no longer be added to this request")
		}
		return s.attach(ctx, req, c, in)
	})
}

func (s *Service) attach(ctx context.Context, req *models.RefundRequest, c *change, in DocumentInput) error {
	meta, err := s.docs.Put(ctx, documents.Document{
		RefundID:    req.ID,
		Type:        string(in.Type),
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Content:     in.Content,
	})
	if err != nil {
		return translate(fmt.Errorf("store evidence: %w", err))
	}
	req.Evidence = append(req.Evidence, models.EvidenceRef{
		ID:         meta.EvidenceID,
		Type:       in.Type,
		Status:     models.EvidenceUnverified,
		Digest:     meta.Digest,
		UploadedAt: c.now,
	})
	c.record(audit.ActionEvidenceAttached, "", "", "evidence attached", map[string]string{
		"evidence_id": meta.EvidenceID.String(),
		"type":        string(in.Type),
		"digest":      meta.Digest,
	})
	return nil
}

// Acknowledge confirms receipt of a claim.
func (s *Service) Acknowledge(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	return s.mutate(ctx, refundID, func(req *models.RefundRequest, c *change) error {
		if err := c.transition(req, models.StateAcknowledged, "receipt acknowledged", nil); err != nil {
			return err
		}
		at := c.now
		req.Checkpoints.AcknowledgedAt = &at
		return nil
	})
}

// Process drives a request through acknowledgement and automated screening.
// Requests already past L1 are returned unchanged.
func (s *Service) Process(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	req, err := s.store.Get(ctx, refundID)
	if err != nil {
		return nil, translate(err)
	}
	if req.State == models.StateReceived {
		if req, err = s.Acknowledge(ctx, refundID); err != nil {
			return nil, err
		}
	}
	switch req.State {
	case models.StateAcknowledged, models.StateL1Screening:
		return s.Screen(ctx, refundID)
	}
	return req, nil
}

// requireOwner rejects stakeholders acting on someone else's claim. Internal
// roles pass.
func (s *Service) requireOwner(ctx context.Context, owner id.StakeholderID) error {
	caller := requestcontext.Principal(ctx)
	if models.Role(caller.Role) != models.RoleStakeholder {
		return nil
	}
	if caller.Subject != owner.String() {
		return dErrors.New(dErrors.CodeNotFound, "refund request not found")
	}
	return nil
}
