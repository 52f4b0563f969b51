// Package disbursement computes the final payable amount of approved
// requests and enforces the disbursement SLA. Late payouts escalate the
// delay-interest bucket; they are never silently deferred.
package disbursement

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"adjudicator/internal/refund/models"
	"adjudicator/pkg/calendar"
	id "adjudicator/pkg/domain"
)

var (
	// ErrUnverifiedAccount is returned when the payout account is not the
	// verified source account and no approved override is on record.
	ErrUnverifiedAccount = errors.New("payout account is not the verified source account")
	// ErrNoDecision is returned when a request has no approval to disburse.
	ErrNoDecision = errors.New("request has no approval decision")
	// ErrAlreadyCompleted is returned when the payout has already been made.
	ErrAlreadyCompleted = errors.New("disbursement already completed")
)

var hundred = decimal.NewFromInt(100)
var daysPerYear = decimal.NewFromInt(365)

// Interest is simple interest: principal × rate × days / (365 × 100),
// rounded to the paisa.
func Interest(principal, ratePct decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 || !ratePct.IsPositive() || !principal.IsPositive() {
		return decimal.Zero
	}
	return principal.Mul(ratePct).Mul(decimal.NewFromInt(int64(days))).
		Div(daysPerYear.Mul(hundred)).Round(2)
}

// Payable is claimed − Σdeductions + interest, floored at zero.
func Payable(claimed decimal.Decimal, deductions []models.Deduction, interest decimal.Decimal) decimal.Decimal {
	p := claimed.Sub(models.SumDeductions(deductions)).Add(interest)
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// Config holds the SLA and the delay-interest rate table.
type Config struct {
	SLABusinessDays int
	// RateBuckets[i] is the annual delay-interest rate after i breaches.
	RateBuckets []decimal.Decimal
}

// DefaultConfig: seven business days, then 6%, 9% and 12% p.a.
func DefaultConfig() Config {
	return Config{
		SLABusinessDays: 7,
		RateBuckets: []decimal.Decimal{
			decimal.Zero,
			decimal.NewFromInt(6),
			decimal.NewFromInt(9),
			decimal.NewFromInt(12),
		},
	}
}

// Scheduler opens, escalates and completes disbursements.
type Scheduler struct {
	cal     *calendar.Calendar
	cfg     Config
	metrics *Metrics
}

type Option func(*Scheduler)

func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		s.cfg = cfg
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func New(cal *calendar.Calendar, opts ...Option) *Scheduler {
	s := &Scheduler{cal: cal, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.cfg.RateBuckets) == 0 {
		s.cfg.RateBuckets = DefaultConfig().RateBuckets
	}
	return s
}

// EntitlementInterest is the interest the eligibility verdict awards (e.g. on
// platform default after allotment), accrued on claimed up to until.
func EntitlementInterest(v *models.EligibilityVerdict, claimed decimal.Decimal, until time.Time) decimal.Decimal {
	if v == nil || v.InterestFrom == nil || !v.InterestRate.IsPositive() {
		return decimal.Zero
	}
	return Interest(claimed, v.InterestRate, calendar.CalendarDaysBetween(*v.InterestFrom, until))
}

// PayoutAccount resolves the destination of a payout and checks it against
// the verified source account.
func PayoutAccount(req *models.RefundRequest) (id.AccountID, bool, error) {
	account := req.PayoutAccount
	if account == "" {
		account = req.Facts.SourceAccount
	}
	if account == "" {
		return "", false, fmt.Errorf("%w: no payout account on record", ErrUnverifiedAccount)
	}
	if account == req.Facts.SourceAccount {
		return account, false, nil
	}
	if req.SignOff != nil && req.SignOff.AccountOverride {
		return account, true, nil
	}
	return "", false, ErrUnverifiedAccount
}

// Open starts the disbursement of an approved request.
func (s *Scheduler) Open(req *models.RefundRequest, approvedAt time.Time) (*models.Disbursement, error) {
	if req.Decision == nil || req.Decision.Outcome != models.OutcomeApproved {
		return nil, ErrNoDecision
	}
	account, override, err := PayoutAccount(req)
	if err != nil {
		return nil, err
	}
	due := s.cal.AddBusinessDays(approvedAt, s.cfg.SLABusinessDays)
	return &models.Disbursement{
		Principal:       req.Decision.Payable,
		Account:         account,
		AccountOverride: override,
		ApprovedAt:      approvedAt,
		SLADueAt:        due,
		DueAt:           due,
		Bucket:          0,
		Rate:            s.cfg.RateBuckets[0],
		AccruedInterest: decimal.Zero,
		Payable:         req.Decision.Payable,
	}, nil
}

// Overdue reports whether d has passed its current escalation checkpoint.
func (s *Scheduler) Overdue(d *models.Disbursement, now time.Time) bool {
	return d != nil && d.CompletedAt == nil && !now.Before(d.DueAt)
}

// Escalate moves an overdue disbursement to the next rate bucket and returns
// the amendment to append to the decision. ok is false when nothing is due.
func (s *Scheduler) Escalate(d *models.Disbursement, now time.Time) (models.Amendment, bool) {
	if !s.Overdue(d, now) {
		return models.Amendment{}, false
	}
	if d.Bucket < len(s.cfg.RateBuckets)-1 {
		d.Bucket++
	}
	d.Rate = s.cfg.RateBuckets[d.Bucket]
	d.DueAt = s.cal.AddBusinessDays(d.DueAt, s.cfg.SLABusinessDays)
	s.accrue(d, now)
	s.metrics.IncBreach(d.Bucket)

	return models.Amendment{
		Reason:   fmt.Sprintf("disbursement SLA breached; delay interest at %s%% p.a.", d.Rate.String()),
		Interest: d.AccruedInterest,
		Payable:  d.Payable,
		Rate:     d.Rate,
		At:       now,
		By:       "system",
	}, true
}

// Complete records the payout. Interest accrued for any delay past the SLA
// deadline is added to the amount paid.
func (s *Scheduler) Complete(d *models.Disbursement, reference string, now time.Time) error {
	if d.CompletedAt != nil {
		return ErrAlreadyCompleted
	}
	if s.Overdue(d, now) && d.Bucket == 0 {
		d.Bucket = 1
		d.Rate = s.cfg.RateBuckets[min(1, len(s.cfg.RateBuckets)-1)]
	}
	s.accrue(d, now)
	d.Reference = reference
	completed := now
	d.CompletedAt = &completed
	s.metrics.ObserveCompleted(now.After(d.SLADueAt))
	return nil
}

func (s *Scheduler) accrue(d *models.Disbursement, now time.Time) {
	days := calendar.CalendarDaysBetween(d.SLADueAt, now)
	d.AccruedInterest = Interest(d.Principal, d.Rate, days)
	d.Payable = d.Principal.Add(d.AccruedInterest)
}
