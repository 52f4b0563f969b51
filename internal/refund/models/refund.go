// Package models holds the refund request aggregate and the value objects the
// pipeline, rules engine, screener and scheduler exchange.
package models

import (
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	id "adjudicator/pkg/domain"
)

// TransactionFacts are the facts about the originating payment needed by the
// eligibility rules. They are captured at submission and never edited.
type TransactionFacts struct {
	TransactedAt    time.Time
	AllotmentAt     *time.Time
	GatewayFee      decimal.Decimal
	ThirdPartyCosts decimal.Decimal
	ServiceAccessed bool
	ServiceDaysUsed int
	ServiceTermDays int
	SourceAccount   id.AccountID
}

// EvidenceRef is the request's view of one document held in the document store.
type EvidenceRef struct {
	ID         id.EvidenceID
	Type       EvidenceType
	Status     EvidenceStatus
	Digest     string
	UploadedAt time.Time
}

// Review is an L2 reviewer's recorded recommendation.
type Review struct {
	Reviewer              id.ReviewerID
	Recommendation        Recommendation
	AuthenticityConfirmed bool
	Clause                string
	Notes                 string
	AccountOverride       bool
	RecordedAt            time.Time
}

type Recommendation string

const (
	RecommendApprove  Recommendation = "approve"
	RecommendReject   Recommendation = "reject"
	RecommendEscalate Recommendation = "escalate"
)

// Vote is one committee member's L3 input.
type Vote struct {
	Member    id.ReviewerID
	Role      Role
	Approve   bool
	Rationale string
	CastAt    time.Time
}

// SignOff is the named approver's release for amounts above the second threshold.
type SignOff struct {
	Approver        id.ReviewerID
	AccountOverride bool
	SignedAt        time.Time
}

// Clearance is the external compliance outcome that releases a Frozen request.
type Clearance struct {
	Officer    id.ReviewerID
	Cleared    bool
	Reference  string
	RecordedAt time.Time
}

// Checkpoints timestamp each SLA-relevant milestone.
type Checkpoints struct {
	SubmittedAt    time.Time
	AcknowledgedAt *time.Time
	L1CompletedAt  *time.Time
	L2CompletedAt  *time.Time
	L3CompletedAt  *time.Time
	ApprovedAt     *time.Time
	DisbursedAt    *time.Time
}

// RefundRequest is the aggregate owned by the verification pipeline.
// Version increases by one on every persisted change.
type RefundRequest struct {
	ID            id.RefundID
	StakeholderID id.StakeholderID
	TransactionID id.TransactionID
	Category      Category
	Stage         Stage
	Grounds       []Ground
	Amount        decimal.Decimal
	Facts         TransactionFacts
	PayoutAccount id.AccountID
	PolicyVersion string
	SubmittedAt   time.Time

	State          State
	PriorState     State
	StateEnteredAt time.Time
	LastActivityAt time.Time
	Version        int
	AuditSeq       int

	Evidence    []EvidenceRef
	Assignee    id.ReviewerID
	Review      *Review
	Votes       []Vote
	SignOff     *SignOff
	Eligibility *EligibilityVerdict
	Risk        *RiskVerdict
	// ClearedIndicators were resolved as false positives by compliance and are
	// excluded from later screenings of this request.
	ClearedIndicators []string
	Clearances        []Clearance
	Flags             []string
	Alerts            map[string]time.Time
	RetryCount        int
	Checkpoints       Checkpoints

	Decision     *DecisionRecord
	Amendments   []Amendment
	Disbursement *Disbursement
}

// Flags raised during L1 for enhanced L2 review.
const (
	FlagL1InternalError  = "l1_internal_error"
	FlagForgedEvidence   = "forged_evidence"
	FlagEDDRequired      = "edd_required"
	FlagConditional      = "conditional_eligibility"
	FlagFraudGround      = "fraud_ground"
	FlagUnknownProfile   = "stakeholder_unknown"
	FlagAwaitingSignOff  = "awaiting_signoff"
	FlagL2SLABreached    = "l2_sla_breached"
	FlagThirdPartyPayout = "third_party_payout"
)

func (r *RefundRequest) HasFlag(flag string) bool {
	return slices.Contains(r.Flags, flag)
}

func (r *RefundRequest) AddFlag(flag string) {
	if !r.HasFlag(flag) {
		r.Flags = append(r.Flags, flag)
	}
}

func (r *RefundRequest) RemoveFlag(flag string) {
	r.Flags = slices.DeleteFunc(r.Flags, func(f string) bool { return f == flag })
}

func (r *RefundRequest) HasGround(g Ground) bool {
	return slices.Contains(r.Grounds, g)
}

// HasEvidence reports whether an unrejected document of the type is attached.
func (r *RefundRequest) HasEvidence(t EvidenceType) bool {
	for _, e := range r.Evidence {
		if e.Type == t && e.Status != EvidenceRejectedForged {
			return true
		}
	}
	return false
}

// Alert kinds. Each is raised at most once per entry into the current state.
const (
	AlertL3SLA  = "l3_sla"
	AlertFrozen = "frozen"
)

func (r *RefundRequest) alertKey(kind string) string {
	return kind + ":" + strconv.FormatInt(r.StateEnteredAt.Unix(), 10)
}

// AlertRaised reports whether kind was already raised since the request
// entered its current state.
func (r *RefundRequest) AlertRaised(kind string) bool {
	_, ok := r.Alerts[r.alertKey(kind)]
	return ok
}

func (r *RefundRequest) RaiseAlert(kind string, at time.Time) {
	if r.Alerts == nil {
		r.Alerts = make(map[string]time.Time)
	}
	r.Alerts[r.alertKey(kind)] = at
}

// VoteFor returns the vote cast for role, if any.
func (r *RefundRequest) VoteFor(role Role) (Vote, bool) {
	for _, v := range r.Votes {
		if v.Role == role {
			return v, true
		}
	}
	return Vote{}, false
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (r *RefundRequest) Clone() *RefundRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Grounds = slices.Clone(r.Grounds)
	c.Evidence = slices.Clone(r.Evidence)
	c.Votes = slices.Clone(r.Votes)
	c.ClearedIndicators = slices.Clone(r.ClearedIndicators)
	c.Clearances = slices.Clone(r.Clearances)
	c.Flags = slices.Clone(r.Flags)
	c.Amendments = slices.Clone(r.Amendments)
	if r.Alerts != nil {
		c.Alerts = make(map[string]time.Time, len(r.Alerts))
		for k, v := range r.Alerts {
			c.Alerts[k] = v
		}
	}
	if r.Review != nil {
		rv := *r.Review
		c.Review = &rv
	}
	if r.SignOff != nil {
		so := *r.SignOff
		c.SignOff = &so
	}
	if r.Eligibility != nil {
		c.Eligibility = r.Eligibility.Clone()
	}
	if r.Risk != nil {
		rv := *r.Risk
		rv.Indicators = slices.Clone(r.Risk.Indicators)
		c.Risk = &rv
	}
	if r.Decision != nil {
		d := *r.Decision
		d.Deductions = slices.Clone(r.Decision.Deductions)
		d.Dissent = slices.Clone(r.Decision.Dissent)
		c.Decision = &d
	}
	if r.Disbursement != nil {
		ds := *r.Disbursement
		c.Disbursement = &ds
	}
	return &c
}
