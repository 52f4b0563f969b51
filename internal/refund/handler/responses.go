package handler

import (
	"time"

	"adjudicator/internal/refund/models"
	audit "adjudicator/pkg/platform/audit"
)

// SubmitResponse acknowledges a new request with its reference.
type SubmitResponse struct {
	ReferenceID string              `json:"reference_id"`
	Status      models.PublicStatus `json:"status"`
	Summary     string              `json:"summary"`
}

func submitted(req *models.RefundRequest) SubmitResponse {
	status := req.State.Public()
	return SubmitResponse{
		ReferenceID: req.ID.String(),
		Status:      status,
		Summary:     status.Summary(),
	}
}

type DeductionResponse struct {
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
}

type DecisionResponse struct {
	Outcome       models.Outcome      `json:"outcome"`
	Tier          int                 `json:"tier"`
	Claimed       string              `json:"claimed"`
	Deductions    []DeductionResponse `json:"deductions"`
	Payable       string              `json:"payable"`
	Reason        string              `json:"reason"`
	Clause        string              `json:"clause"`
	PolicyVersion string              `json:"policy_version"`
	DissentCount  int                 `json:"dissent_count"`
	DecidedBy     string              `json:"decided_by"`
	DecidedAt     time.Time           `json:"decided_at"`
}

type AmendmentResponse struct {
	Reason   string    `json:"reason"`
	Interest string    `json:"interest"`
	Payable  string    `json:"payable"`
	At       time.Time `json:"at"`
}

type DisbursementResponse struct {
	Account     string     `json:"account"`
	SLADueAt    time.Time  `json:"sla_due_at"`
	Rate        string     `json:"rate"`
	Interest    string     `json:"accrued_interest"`
	Payable     string     `json:"payable"`
	Reference   string     `json:"reference,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type RiskResponse struct {
	Level       models.RiskLevel `json:"level"`
	Score       int              `json:"score"`
	Indicators  []string         `json:"indicators"`
	ListVersion string           `json:"list_version"`
}

// RefundResponse is the internal view of a request.
type RefundResponse struct {
	ID             string                `json:"id"`
	StakeholderID  string                `json:"stakeholder_id"`
	TransactionID  string                `json:"transaction_id"`
	Category       models.Category       `json:"category"`
	Stage          models.Stage          `json:"stage"`
	Grounds        []models.Ground       `json:"grounds"`
	Amount         string                `json:"amount"`
	PolicyVersion  string                `json:"policy_version"`
	State          models.State          `json:"state"`
	StateEnteredAt time.Time             `json:"state_entered_at"`
	Version        int                   `json:"version"`
	Assignee       string                `json:"assignee,omitempty"`
	Flags          []string              `json:"flags"`
	Eligibility    models.Eligibility    `json:"eligibility,omitempty"`
	Risk           *RiskResponse         `json:"risk,omitempty"`
	RetryCount     int                   `json:"retry_count"`
	Decision       *DecisionResponse     `json:"decision,omitempty"`
	Amendments     []AmendmentResponse   `json:"amendments,omitempty"`
	Disbursement   *DisbursementResponse `json:"disbursement,omitempty"`
}

// toRefundResponse renders the internal view. Screening detail is included
// only for callers cleared to see AML findings.
func toRefundResponse(req *models.RefundRequest, confidential bool) RefundResponse {
	resp := RefundResponse{
		ID:             req.ID.String(),
		StakeholderID:  req.StakeholderID.String(),
		TransactionID:  string(req.TransactionID),
		Category:       req.Category,
		Stage:          req.Stage,
		Grounds:        req.Grounds,
		Amount:         req.Amount.StringFixed(2),
		PolicyVersion:  req.PolicyVersion,
		State:          req.State,
		StateEnteredAt: req.StateEnteredAt,
		Version:        req.Version,
		Flags:          req.Flags,
		RetryCount:     req.RetryCount,
	}
	if resp.Flags == nil {
		resp.Flags = []string{}
	}
	if !req.Assignee.IsNil() {
		resp.Assignee = req.Assignee.String()
	}
	if req.Eligibility != nil {
		resp.Eligibility = req.Eligibility.Outcome
	}
	if confidential && req.Risk != nil {
		resp.Risk = &RiskResponse{
			Level:       req.Risk.Level,
			Score:       req.Risk.Score,
			Indicators:  req.Risk.IndicatorCodes(),
			ListVersion: req.Risk.ListVersion,
		}
	}
	if d := req.Decision; d != nil {
		deductions := make([]DeductionResponse, 0, len(d.Deductions))
		for _, x := range d.Deductions {
			deductions = append(deductions, DeductionResponse{Kind: x.Kind, Amount: x.Amount.StringFixed(2)})
		}
		resp.Decision = &DecisionResponse{
			Outcome:       d.Outcome,
			Tier:          d.Tier,
			Claimed:       d.Claimed.StringFixed(2),
			Deductions:    deductions,
			Payable:       d.Payable.StringFixed(2),
			Reason:        d.Reason,
			Clause:        d.Clause,
			PolicyVersion: d.PolicyVersion,
			DissentCount:  len(d.Dissent),
			DecidedBy:     d.DecidedBy,
			DecidedAt:     d.DecidedAt,
		}
	}
	for _, a := range req.Amendments {
		resp.Amendments = append(resp.Amendments, AmendmentResponse{
			Reason:   a.Reason,
			Interest: a.Interest.StringFixed(2),
			Payable:  a.Payable.StringFixed(2),
			At:       a.At,
		})
	}
	if d := req.Disbursement; d != nil {
		resp.Disbursement = &DisbursementResponse{
			Account:     string(d.Account),
			SLADueAt:    d.SLADueAt,
			Rate:        d.Rate.String(),
			Interest:    d.AccruedInterest.StringFixed(2),
			Payable:     d.Payable.StringFixed(2),
			Reference:   d.Reference,
			CompletedAt: d.CompletedAt,
		}
	}
	return resp
}

// RecordResponse is one trail entry.
type RecordResponse struct {
	Seq       int               `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor"`
	Action    audit.Action      `json:"action"`
	Category  audit.Category    `json:"category"`
	From      string            `json:"from,omitempty"`
	To        string            `json:"to,omitempty"`
	Inputs    map[string]string `json:"inputs,omitempty"`
	Rationale string            `json:"rationale,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type TrailResponse struct {
	RefundID string           `json:"refund_id"`
	Records  []RecordResponse `json:"records"`
}

func toTrailResponse(refundID string, records []audit.Record) TrailResponse {
	out := TrailResponse{RefundID: refundID, Records: make([]RecordResponse, 0, len(records))}
	for _, r := range records {
		out.Records = append(out.Records, RecordResponse{
			Seq:       r.Seq,
			Timestamp: r.Timestamp,
			Actor:     r.Actor,
			Action:    r.Action,
			Category:  r.Category,
			From:      r.From,
			To:        r.To,
			Inputs:    r.Inputs,
			Rationale: r.Rationale,
			RequestID: r.RequestID,
		})
	}
	return out
}
