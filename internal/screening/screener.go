// Package screening implements the AML/sanctions screener. It combines three
// independent signal families into a weighted score:
//
//   - sanctions and PEP list matches (exact and fuzzy),
//   - source-of-funds plausibility above the high-value cutoff,
//   - patterns in the stakeholder's own refund history and account usage.
//
// An exact sanctions match is suspicious on its own. Fuzzy matches only ever
// raise the score so that false positives stay resolvable by a human.
package screening

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"adjudicator/internal/evidence/registry"
	"adjudicator/internal/evidence/sanctions"
	"adjudicator/internal/refund/models"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/requestcontext"
)

// Indicator codes.
const (
	IndicatorSanctionsExact     = "sanctions_exact"
	IndicatorSanctionsFuzzy     = "sanctions_fuzzy"
	IndicatorPEPMatch           = "pep_match"
	IndicatorSourceOfFunds      = "source_of_funds_implausible"
	IndicatorRepeatedSmall      = "repeated_small_refunds"
	IndicatorPayoutMismatch     = "payout_account_mismatch"
	IndicatorUnregisteredPayout = "unregistered_payout_account"
	IndicatorHighRiskCategory   = "high_risk_category"
	IndicatorKYCNotVerified     = "kyc_not_verified"
)

// Weights per indicator. An exact sanctions hit is scored at the suspicious threshold.
var Weights = map[string]int{
	IndicatorSanctionsFuzzy:     40,
	IndicatorPEPMatch:           40,
	IndicatorSourceOfFunds:      40,
	IndicatorRepeatedSmall:      30,
	IndicatorPayoutMismatch:     30,
	IndicatorUnregisteredPayout: 50,
	IndicatorHighRiskCategory:   20,
	IndicatorKYCNotVerified:     30,
}

// ProfileSource is the registry port.
type ProfileSource interface {
	Lookup(ctx context.Context, stakeholderID id.StakeholderID) (*registry.Profile, error)
}

// ListProvider is the sanctions list port.
type ListProvider interface {
	MatchName(ctx context.Context, name, dob string) ([]sanctions.Candidate, string, error)
}

// Config holds the screening thresholds.
type Config struct {
	HighValueCutoff  decimal.Decimal
	SmallRefundLimit decimal.Decimal
	SmallRefundCount int
	PatternWindow    time.Duration
	EDDScore         int
	SuspiciousScore  int
}

// DefaultConfig: ₹10,00,000 high-value cutoff, three refunds under ₹10,000
// within 90 days, EDD from 40 points, suspicious from 100.
func DefaultConfig() Config {
	return Config{
		HighValueCutoff:  decimal.NewFromInt(1_000_000),
		SmallRefundLimit: decimal.NewFromInt(10_000),
		SmallRefundCount: 3,
		PatternWindow:    90 * 24 * time.Hour,
		EDDScore:         40,
		SuspiciousScore:  100,
	}
}

// Input is a screening request. SourceAccount is the account the original
// payment came from; Cleared lists indicator keys compliance has resolved as
// false positives for this request.
type Input struct {
	StakeholderID id.StakeholderID
	Amount        decimal.Decimal
	PayoutAccount id.AccountID
	SourceAccount id.AccountID
	Cleared       []string
}

// Screener produces RiskVerdicts. It holds no per-request state.
type Screener struct {
	registry ProfileSource
	list     ListProvider
	cfg      Config
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

// Option configures a Screener.
type Option func(*Screener)

func WithConfig(cfg Config) Option {
	return func(s *Screener) {
		s.cfg = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Screener) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Screener) {
		s.metrics = m
	}
}

func New(reg ProfileSource, list ListProvider, opts ...Option) *Screener {
	s := &Screener{
		registry: reg,
		list:     list,
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("adjudicator/screening"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Screen screens a stakeholder for a payout of amount to payoutAccount.
func (s *Screener) Screen(ctx context.Context, stakeholderID id.StakeholderID, amount decimal.Decimal, payoutAccount id.AccountID) (models.RiskVerdict, error) {
	return s.ScreenRequest(ctx, Input{StakeholderID: stakeholderID, Amount: amount, PayoutAccount: payoutAccount})
}

// ScreenRequest screens with the full request context. Collaborator errors
// are returned unchanged so callers can tell outages from unknown stakeholders.
func (s *Screener) ScreenRequest(ctx context.Context, in Input) (models.RiskVerdict, error) {
	ctx, span := s.tracer.Start(ctx, "screening.Screen")
	defer span.End()
	start := time.Now()

	profile, err := s.registry.Lookup(ctx, in.StakeholderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registry lookup failed")
		s.metrics.ObserveFailure("registry")
		return models.RiskVerdict{}, fmt.Errorf("lookup stakeholder: %w", err)
	}

	candidates, listVersion, err := s.list.MatchName(ctx, profile.FullName, profile.DateOfBirth)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sanctions list unavailable")
		s.metrics.ObserveFailure("sanctions")
		return models.RiskVerdict{}, fmt.Errorf("match sanctions list: %w", err)
	}

	now := requestcontext.Now(ctx)
	indicators, hardStop := s.collect(profile, candidates, in, now)
	indicators = slices.DeleteFunc(indicators, func(i models.Indicator) bool {
		return slices.Contains(in.Cleared, i.Key())
	})
	hardStop = slices.ContainsFunc(indicators, func(i models.Indicator) bool {
		return i.Code == IndicatorSanctionsExact
	}) && hardStop

	verdict := models.RiskVerdict{
		Indicators:  indicators,
		ListVersion: listVersion,
		ScreenedAt:  now,
	}
	for _, i := range indicators {
		verdict.Score += i.Weight
	}
	verdict.Level = s.level(verdict.Score, hardStop)

	span.SetAttributes(
		attribute.String("screening.list_version", listVersion),
		attribute.Int("screening.indicators", len(indicators)),
	)
	s.metrics.ObserveVerdict(verdict.Level, time.Since(start))
	s.logger.InfoContext(ctx, "screening completed",
		"stakeholder_id", in.StakeholderID.String(),
		"list_version", listVersion,
		"indicator_count", len(indicators),
	)
	return verdict, nil
}

func (s *Screener) level(score int, hardStop bool) models.RiskLevel {
	switch {
	case hardStop || score >= s.cfg.SuspiciousScore:
		return models.RiskSuspicious
	case score >= s.cfg.EDDScore:
		return models.RiskEDDRequired
	default:
		return models.RiskClear
	}
}

// collect evaluates every indicator. Order is stable so that repeated
// screening of unchanged data yields an identical verdict.
func (s *Screener) collect(p *registry.Profile, candidates []sanctions.Candidate, in Input, now time.Time) ([]models.Indicator, bool) {
	var out []models.Indicator
	hardStop := false

	for _, c := range candidates {
		switch {
		case c.Kind == sanctions.KindPEP:
			out = append(out, indicator(IndicatorPEPMatch, c.EntryID,
				fmt.Sprintf("PEP list entry %s (similarity %.2f)", c.EntryID, c.Score)))
		case c.Exact():
			hardStop = true
			out = append(out, models.Indicator{
				Code:   IndicatorSanctionsExact,
				Ref:    c.EntryID,
				Weight: s.cfg.SuspiciousScore,
				Detail: fmt.Sprintf("sanctions list entry %s", c.EntryID),
			})
		default:
			out = append(out, indicator(IndicatorSanctionsFuzzy, c.EntryID,
				fmt.Sprintf("possible sanctions match %s (similarity %.2f)", c.EntryID, c.Score)))
		}
	}

	if in.Amount.GreaterThan(s.cfg.HighValueCutoff) && in.Amount.GreaterThan(p.DeclaredAnnualIncome) {
		out = append(out, indicator(IndicatorSourceOfFunds, "",
			"amount exceeds declared annual income"))
	}

	if s.smallRefundCount(p, in, now) >= s.cfg.SmallRefundCount {
		out = append(out, indicator(IndicatorRepeatedSmall, "",
			fmt.Sprintf("%d or more refunds under %s within %d days", s.cfg.SmallRefundCount,
				s.cfg.SmallRefundLimit.String(), int(s.cfg.PatternWindow.Hours()/24))))
	}

	if in.PayoutAccount != "" {
		if in.SourceAccount != "" && in.PayoutAccount != in.SourceAccount {
			out = append(out, indicator(IndicatorPayoutMismatch, "",
				"payout account differs from the originating payment account"))
		}
		if !p.HasPayoutAccount(in.PayoutAccount) && !p.HasSourceAccount(in.PayoutAccount) {
			out = append(out, indicator(IndicatorUnregisteredPayout, "",
				"payout account is not registered to the stakeholder"))
		}
	}

	if p.RiskCategory == registry.RiskHigh {
		out = append(out, indicator(IndicatorHighRiskCategory, "", "registry risk category is high"))
	}
	if p.KYCStatus != registry.KYCVerified {
		out = append(out, indicator(IndicatorKYCNotVerified, "",
			fmt.Sprintf("KYC status is %q", p.KYCStatus)))
	}
	return out, hardStop
}

func (s *Screener) smallRefundCount(p *registry.Profile, in Input, now time.Time) int {
	n := 0
	for _, r := range p.RefundsSince(now.Add(-s.cfg.PatternWindow)) {
		if r.Amount.LessThan(s.cfg.SmallRefundLimit) {
			n++
		}
	}
	if in.Amount.IsPositive() && in.Amount.LessThan(s.cfg.SmallRefundLimit) {
		n++
	}
	return n
}

func indicator(code, ref, detail string) models.Indicator {
	return models.Indicator{Code: code, Ref: ref, Weight: Weights[code], Detail: detail}
}
