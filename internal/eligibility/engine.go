// Package eligibility is the refund rules engine: a pure, table-driven mapping
// from (category, stage, grounds, amount) to a verdict with its deduction
// breakdown and policy citation.
package eligibility

import (
	"time"

	"github.com/shopspring/decimal"

	"adjudicator/internal/policy"
	"adjudicator/internal/refund/models"
	"adjudicator/pkg/calendar"
)

// Params are the monetary constants referenced by the formulas.
type Params struct {
	ProcessingRatePct  decimal.Decimal
	ThirdPartyCapFlat  decimal.Decimal
	ThirdPartyCapPct   decimal.Decimal
	DefaultInterestPct decimal.Decimal
	CoolingOffDays     int
	AdminCharge        decimal.Decimal
}

func DefaultParams() Params {
	return Params{
		ProcessingRatePct:  decimal.NewFromInt(2),
		ThirdPartyCapFlat:  decimal.NewFromInt(5000),
		ThirdPartyCapPct:   decimal.NewFromInt(1),
		DefaultInterestPct: decimal.NewFromInt(12),
		CoolingOffDays:     14,
		AdminCharge:        decimal.NewFromInt(500),
	}
}

// Input is everything a verdict depends on.
type Input struct {
	Category    models.Category
	Stage       models.Stage
	Grounds     []models.Ground
	Amount      decimal.Decimal
	Facts       models.TransactionFacts
	SubmittedAt time.Time
}

// Engine evaluates inputs against a rule table. It holds no mutable state.
type Engine struct {
	rules       []Rule
	limitations map[models.Category]Limitation
	params      Params
	cal         *calendar.Calendar
}

// Option configures an Engine.
type Option func(*Engine)

func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

func WithLimitations(l map[models.Category]Limitation) Option {
	return func(e *Engine) { e.limitations = l }
}

func WithParams(p Params) Option {
	return func(e *Engine) { e.params = p }
}

// New builds an engine with the published table.
func New(cal *calendar.Calendar, opts ...Option) *Engine {
	if cal == nil {
		cal = calendar.New(nil)
	}
	e := &Engine{
		rules:       DefaultRules(),
		limitations: DefaultLimitations(),
		params:      DefaultParams(),
		cal:         cal,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns a copy of the rule table.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Limitations returns the limitation table.
func (e *Engine) Limitations() map[models.Category]Limitation {
	out := make(map[models.Category]Limitation, len(e.limitations))
	for k, v := range e.limitations {
		out[k] = v
	}
	return out
}

// Evaluate returns the most favourable verdict across the asserted grounds.
// A claim outside its limitation window, or with no matching rule, is
// ineligible with a citation; there is no default approval.
func (e *Engine) Evaluate(in Input) models.EligibilityVerdict {
	if e.TimeBarred(in.Category, in.Facts.TransactedAt, in.SubmittedAt) {
		return models.EligibilityVerdict{
			Outcome:    models.Ineligible,
			Clause:     policy.ClauseLimitation,
			Reason:     "claim raised after the limitation period for the transaction category",
			TimeBarred: true,
		}
	}

	var best *models.EligibilityVerdict
	for _, g := range in.Grounds {
		v := e.evaluateGround(in, g)
		if best == nil || better(v, *best) {
			vv := v
			best = &vv
		}
	}
	if best == nil {
		return models.EligibilityVerdict{
			Outcome: models.Ineligible,
			Clause:  policy.ClauseUnrecognisedGround,
			Reason:  "no refund ground asserted",
		}
	}
	return *best
}

// TimeBarred reports whether submittedAt falls outside the category's window.
// Unknown categories are never time-barred here; they fail rule matching.
func (e *Engine) TimeBarred(c models.Category, transactedAt, submittedAt time.Time) bool {
	lim, ok := e.limitations[c]
	if !ok || transactedAt.IsZero() {
		return false
	}
	if lim.BusinessDays {
		return e.cal.BusinessDaysBetween(transactedAt, submittedAt) > lim.Days
	}
	return calendar.CalendarDaysBetween(transactedAt, submittedAt) > lim.Days
}

func (e *Engine) evaluateGround(in Input, g models.Ground) models.EligibilityVerdict {
	for _, r := range e.rules {
		if !r.matches(in.Category, in.Stage, g) {
			continue
		}
		v, ok := e.apply(r, in)
		if !ok {
			return v
		}
		v.Outcome = r.Outcome
		v.Ground = g
		v.RuleID = r.ID
		v.FormulaID = string(r.Formula)
		v.Clause = r.Clause
		return v
	}

	if in.Stage == models.StageCompleted {
		return models.EligibilityVerdict{
			Outcome: models.Ineligible,
			Ground:  g,
			Clause:  policy.ClauseCompletedTransactions,
			Reason:  "completed transactions are refundable only for fraud or misrepresentation",
		}
	}
	return models.EligibilityVerdict{
		Outcome: models.Ineligible,
		Ground:  g,
		Clause:  policy.ClauseUnrecognisedGround,
		Reason:  "ground is not recognised for this transaction",
	}
}

// better prefers the higher outcome, then the smaller deduction.
func better(a, b models.EligibilityVerdict) bool {
	if a.Outcome.Rank() != b.Outcome.Rank() {
		return a.Outcome.Rank() > b.Outcome.Rank()
	}
	return a.TotalDeductions().LessThan(b.TotalDeductions())
}
