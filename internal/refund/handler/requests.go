package handler

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"adjudicator/internal/refund/models"
	"adjudicator/internal/refund/pipeline"
	id "adjudicator/pkg/domain"
	dErrors "adjudicator/pkg/domain-errors"
	strutil "adjudicator/pkg/platform/strings"
)

const maxDocuments = 20

// DocumentRequest carries one document inline, base64 encoded.
type DocumentRequest struct {
	Type        string `json:"type"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`

	parsed pipeline.DocumentInput
}

func (r *DocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	t, err := models.ParseEvidenceType(strings.TrimSpace(r.Type))
	if err != nil {
		return err
	}
	content, err := base64.StdEncoding.DecodeString(r.Content)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "content must be base64 encoded")
	}
	r.parsed = pipeline.DocumentInput{
		Type:        t,
		Filename:    strings.TrimSpace(r.Filename),
		ContentType: strings.TrimSpace(r.ContentType),
		Content:     content,
	}
	return nil
}

// TransactionRequest describes the originating payment.
type TransactionRequest struct {
	TransactedAt    time.Time  `json:"transacted_at"`
	AllotmentAt     *time.Time `json:"allotment_at,omitempty"`
	GatewayFee      string     `json:"gateway_fee,omitempty"`
	ThirdPartyCosts string     `json:"third_party_costs,omitempty"`
	ServiceAccessed bool       `json:"service_accessed"`
	ServiceDaysUsed int        `json:"service_days_used"`
	ServiceTermDays int        `json:"service_term_days"`
	SourceAccount   string     `json:"source_account"`
}

// SubmitRequest is the body of POST /v1/refunds.
type SubmitRequest struct {
	TransactionID string             `json:"transaction_id"`
	Category      string             `json:"category"`
	Stage         string             `json:"stage"`
	Grounds       []string           `json:"grounds"`
	Amount        string             `json:"amount"`
	Transaction   TransactionRequest `json:"transaction"`
	PayoutAccount string             `json:"payout_account,omitempty"`
	Documents     []DocumentRequest  `json:"documents"`

	parsed pipeline.SubmitInput
}

// Validate parses the body into a SubmitInput. The stakeholder id comes from
// the caller, never the body.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Documents) > maxDocuments {
		return dErrors.New(dErrors.CodeValidation, "too many documents")
	}

	txID, err := id.ParseTransactionID(strings.TrimSpace(r.TransactionID))
	if err != nil {
		return err
	}
	category, err := models.ParseCategory(strings.TrimSpace(r.Category))
	if err != nil {
		return err
	}
	stage, err := models.ParseStage(strings.TrimSpace(r.Stage))
	if err != nil {
		return err
	}
	grounds := make([]models.Ground, 0, len(r.Grounds))
	for _, g := range strutil.Normalize(r.Grounds, true) {
		ground, err := models.ParseGround(g)
		if err != nil {
			return err
		}
		grounds = append(grounds, ground)
	}
	amount, err := parseAmount("amount", r.Amount, true)
	if err != nil {
		return err
	}
	gatewayFee, err := parseAmount("transaction.gateway_fee", r.Transaction.GatewayFee, false)
	if err != nil {
		return err
	}
	thirdParty, err := parseAmount("transaction.third_party_costs", r.Transaction.ThirdPartyCosts, false)
	if err != nil {
		return err
	}
	var source, payout id.AccountID
	if s := strings.TrimSpace(r.Transaction.SourceAccount); s != "" {
		if source, err = id.ParseAccountID(s); err != nil {
			return err
		}
	}
	if p := strings.TrimSpace(r.PayoutAccount); p != "" {
		if payout, err = id.ParseAccountID(p); err != nil {
			return err
		}
	}

	docs := make([]pipeline.DocumentInput, 0, len(r.Documents))
	for i := range r.Documents {
		if err := r.Documents[i].Validate(); err != nil {
			return err
		}
		docs = append(docs, r.Documents[i].parsed)
	}

	r.parsed = pipeline.SubmitInput{
		TransactionID: txID,
		Category:      category,
		Stage:         stage,
		Grounds:       grounds,
		Amount:        amount,
		Facts: models.TransactionFacts{
			TransactedAt:    r.Transaction.TransactedAt,
			AllotmentAt:     r.Transaction.AllotmentAt,
			GatewayFee:      gatewayFee,
			ThirdPartyCosts: thirdParty,
			ServiceAccessed: r.Transaction.ServiceAccessed,
			ServiceDaysUsed: r.Transaction.ServiceDaysUsed,
			ServiceTermDays: r.Transaction.ServiceTermDays,
			SourceAccount:   source,
		},
		PayoutAccount: payout,
		Documents:     docs,
	}
	return nil
}

func parseAmount(field, s string, required bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return decimal.Zero, dErrors.New(dErrors.CodeValidation, field+" is required")
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, field+" must be a decimal amount")
	}
	if d.IsNegative() {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, field+" must not be negative")
	}
	return d, nil
}

// ReviewRequest is the body of POST /internal/refunds/{id}/review.
type ReviewRequest struct {
	Recommendation        string `json:"recommendation"`
	AuthenticityConfirmed bool   `json:"authenticity_confirmed"`
	Clause                string `json:"clause,omitempty"`
	Notes                 string `json:"notes,omitempty"`
}

func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	switch models.Recommendation(strings.TrimSpace(r.Recommendation)) {
	case models.RecommendApprove, models.RecommendReject, models.RecommendEscalate:
	default:
		return dErrors.New(dErrors.CodeValidation, "recommendation must be approve, reject or escalate")
	}
	r.Recommendation = strings.TrimSpace(r.Recommendation)
	r.Clause = strings.TrimSpace(r.Clause)
	return nil
}

func (r *ReviewRequest) input() pipeline.ReviewInput {
	return pipeline.ReviewInput{
		Recommendation:        models.Recommendation(r.Recommendation),
		AuthenticityConfirmed: r.AuthenticityConfirmed,
		Clause:                r.Clause,
		Notes:                 r.Notes,
	}
}

// VoteRequest is the body of POST /internal/refunds/{id}/votes.
type VoteRequest struct {
	Approve   *bool  `json:"approve"`
	Rationale string `json:"rationale"`
}

func (r *VoteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Approve == nil {
		return dErrors.New(dErrors.CodeValidation, "approve is required")
	}
	r.Rationale = strings.TrimSpace(r.Rationale)
	if r.Rationale == "" {
		return dErrors.New(dErrors.CodeValidation, "rationale is required")
	}
	return nil
}

// SignOffRequest is the body of POST /internal/refunds/{id}/signoff.
type SignOffRequest struct {
	AccountOverride bool `json:"account_override"`
}

func (r *SignOffRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// ClearanceRequest is the body of POST /internal/refunds/{id}/clearance.
type ClearanceRequest struct {
	Cleared   *bool  `json:"cleared"`
	Reference string `json:"reference"`
}

func (r *ClearanceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Cleared == nil {
		return dErrors.New(dErrors.CodeValidation, "cleared is required")
	}
	r.Reference = strings.TrimSpace(r.Reference)
	if r.Reference == "" {
		return dErrors.New(dErrors.CodeValidation, "reference is required")
	}
	return nil
}

// DisburseRequest is the body of POST /internal/refunds/{id}/disburse.
type DisburseRequest struct {
	Reference string `json:"reference"`
}

func (r *DisburseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reference = strings.TrimSpace(r.Reference)
	if r.Reference == "" {
		return dErrors.New(dErrors.CodeValidation, "reference is required")
	}
	return nil
}
