package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	id "adjudicator/pkg/domain"
)

// Eligibility is the rules engine outcome class.
type Eligibility string

const (
	Eligible    Eligibility = "eligible"
	Conditional Eligibility = "conditional"
	Ineligible  Eligibility = "ineligible"
)

// Rank orders outcomes from most to least favourable to the stakeholder.
func (e Eligibility) Rank() int {
	switch e {
	case Eligible:
		return 2
	case Conditional:
		return 1
	}
	return 0
}

// Deduction is one line of the deduction breakdown.
type Deduction struct {
	Kind   string
	Amount decimal.Decimal
}

// SumDeductions totals a breakdown.
func SumDeductions(ds []Deduction) decimal.Decimal {
	total := decimal.Zero
	for _, d := range ds {
		total = total.Add(d.Amount)
	}
	return total
}

// EligibilityVerdict is a value object computed fresh on every evaluation.
type EligibilityVerdict struct {
	Outcome    Eligibility
	Ground     Ground
	RuleID     string
	FormulaID  string
	Clause     string
	Reason     string
	TimeBarred bool
	Deductions []Deduction
	// InterestRate is the annual rate owed from InterestFrom when the rule
	// awards interest (platform default after allotment).
	InterestRate decimal.Decimal
	InterestFrom *time.Time
}

func (v *EligibilityVerdict) TotalDeductions() decimal.Decimal {
	return SumDeductions(v.Deductions)
}

func (v *EligibilityVerdict) Clone() *EligibilityVerdict {
	c := *v
	c.Deductions = slices.Clone(v.Deductions)
	return &c
}

// RiskLevel is the AML screening outcome class.
type RiskLevel string

const (
	RiskClear       RiskLevel = "clear"
	RiskEDDRequired RiskLevel = "edd-required"
	RiskSuspicious  RiskLevel = "suspicious"
)

// Indicator is one matched AML signal. Ref identifies the list entry for
// sanctions and PEP matches.
type Indicator struct {
	Code   string
	Ref    string
	Weight int
	Detail string
}

// Key identifies the indicator for clearance. A cleared fuzzy match on one
// list entry does not clear a match on another.
func (i Indicator) Key() string {
	if i.Ref == "" {
		return i.Code
	}
	return i.Code + ":" + i.Ref
}

// RiskVerdict is the screener output. Suspicious is a hard gate.
type RiskVerdict struct {
	Level       RiskLevel
	Score       int
	Indicators  []Indicator
	ListVersion string
	ScreenedAt  time.Time
}

// IndicatorKeys returns the clearance keys of the matched indicators.
func (v RiskVerdict) IndicatorKeys() []string {
	out := make([]string, 0, len(v.Indicators))
	for _, i := range v.Indicators {
		out = append(out, i.Key())
	}
	return out
}

// IndicatorCodes returns the matched indicator codes in order.
func (v RiskVerdict) IndicatorCodes() []string {
	out := make([]string, 0, len(v.Indicators))
	for _, i := range v.Indicators {
		out = append(out, i.Code)
	}
	return out
}

// Outcome of a decided request.
type Outcome string

const (
	OutcomeApproved  Outcome = "approved"
	OutcomeRejected  Outcome = "rejected"
	OutcomeExpired   Outcome = "expired"
	OutcomeWithdrawn Outcome = "withdrawn"
)

// DecisionRecord is created once when the request is decided and never
// mutated. Later changes to the money owed are Amendments.
type DecisionRecord struct {
	Outcome       Outcome
	Tier          int
	Claimed       decimal.Decimal
	Deductions    []Deduction
	Payable       decimal.Decimal
	Reason        string
	Clause        string
	PolicyVersion string
	Dissent       []Vote
	DecidedBy     string
	DecidedAt     time.Time
	Checkpoints   Checkpoints
}

// Amendment appends a correction to the decision without rewriting it.
type Amendment struct {
	Reason   string
	Interest decimal.Decimal
	Payable  decimal.Decimal
	Rate     decimal.Decimal
	At       time.Time
	By       string
}

// Disbursement tracks payout of an approved request. SLADueAt is the
// contractual deadline; DueAt is the next escalation checkpoint and moves
// forward one SLA window per breach.
type Disbursement struct {
	Principal       decimal.Decimal
	Account         id.AccountID
	AccountOverride bool
	ApprovedAt      time.Time
	SLADueAt        time.Time
	DueAt           time.Time
	Bucket          int
	Rate            decimal.Decimal
	AccruedInterest decimal.Decimal
	Payable         decimal.Decimal
	Reference       string
	CompletedAt     *time.Time
}
