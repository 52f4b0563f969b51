// Package pipeline is the refund verification state machine. It owns every
// RefundRequest from submission to a terminal state and is the only writer of
// request state: all transitions run under a per-request lock, are persisted
// with an optimistic version check, and append to the audit trail in the same
// unit of work.
package pipeline

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"adjudicator/internal/disbursement"
	"adjudicator/internal/eligibility"
	"adjudicator/internal/notify"
	"adjudicator/internal/platform/lock"
	"adjudicator/internal/policy"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/tx"
)

// ResumePolicy chooses where a cleared Frozen request continues.
type ResumePolicy string

const (
	ResumePrior     ResumePolicy = "resume_prior"
	ResumeRestartL1 ResumePolicy = "restart_l1"
)

// Config holds the adjudication thresholds and staffing.
type Config struct {
	// HighValueThreshold makes L3 review mandatory when the payable exceeds it.
	HighValueThreshold decimal.Decimal
	// SignOffThreshold requires a named approver before Disbursing.
	SignOffThreshold decimal.Decimal
	FrozenResume     ResumePolicy
	Reviewers        []id.ReviewerID
	NamedApprovers   []id.ReviewerID
}

// DefaultConfig: ₹10,00,000 for L3, ₹25,00,000 for named sign-off.
func DefaultConfig() Config {
	return Config{
		HighValueThreshold: decimal.NewFromInt(1_000_000),
		SignOffThreshold:   decimal.NewFromInt(2_500_000),
		FrozenResume:       ResumePrior,
	}
}

// Service runs the pipeline operations.
type Service struct {
	store     Store
	audit     AuditPublisher
	docs      DocumentStore
	screener  Screener
	rules     *eligibility.Engine
	scheduler *disbursement.Scheduler
	policies  *policy.Library
	locker    lock.Locker
	tx        tx.Runner

	publisher notify.StatePublisher
	reporter  notify.ComplianceReporter
	operators notify.OperatorQueue

	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	// rr breaks assignment ties between equally loaded reviewers.
	rr atomic.Uint64
}

// Option configures a Service.
type Option func(*Service)

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTxRunner makes request updates and trail appends atomic. Defaults to
// running them directly, which is correct for the in-memory stores.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithNotifiers sets the outbound event surfaces. Nil values keep the defaults.
func WithNotifiers(p notify.StatePublisher, r notify.ComplianceReporter, q notify.OperatorQueue) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
		if r != nil {
			s.reporter = r
		}
		if q != nil {
			s.operators = q
		}
	}
}

// Deps are the collaborators every pipeline needs.
type Deps struct {
	Store     Store
	Audit     AuditPublisher
	Documents DocumentStore
	Screener  Screener
	Rules     *eligibility.Engine
	Scheduler *disbursement.Scheduler
	Policies  *policy.Library
}

// New builds a Service. Without notifiers, events are recorded in memory.
func New(deps Deps, opts ...Option) *Service {
	rec := notify.NewRecorder()
	s := &Service{
		store:     deps.Store,
		audit:     deps.Audit,
		docs:      deps.Documents,
		screener:  deps.Screener,
		rules:     deps.Rules,
		scheduler: deps.Scheduler,
		policies:  deps.Policies,
		locker:    lock.NewMemory(),
		tx:        tx.NopRunner{},
		publisher: rec,
		reporter:  rec,
		operators: rec,
		cfg:       DefaultConfig(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("adjudicator/pipeline"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.FrozenResume == "" {
		s.cfg.FrozenResume = ResumePrior
	}
	return s
}

// Config returns the active configuration.
func (s *Service) Config() Config { return s.cfg }

func since(start time.Time) float64 { return time.Since(start).Seconds() }
