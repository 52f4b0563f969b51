// Package monitor is the timeout and escalation sweep. It runs on its own
// schedule, scans every open request and forces the transitions the pipeline
// cannot trigger from a request: SLA escalation, expiry of stale requests,
// alerts for long compliance holds, retries of parked requests and late
// disbursement escalation. Every forced transition goes through the pipeline
// so it takes the same per-request lock as a human decision.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"adjudicator/internal/refund/models"
	"adjudicator/pkg/calendar"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/requestcontext"
)

// Pipeline is the subset of the pipeline the monitor drives.
type Pipeline interface {
	Open(ctx context.Context) ([]*models.RefundRequest, error)
	Process(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error)
	Retry(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error)
	Escalate(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error)
	Expire(ctx context.Context, refundID id.RefundID, reason string) (*models.RefundRequest, error)
	AlertFrozen(ctx context.Context, refundID id.RefundID, age time.Duration) (*models.RefundRequest, error)
	EscalateDisbursement(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error)
}

// Config holds the SLA windows the sweep enforces.
type Config struct {
	// StaleIntake is how long a request may sit before automated processing
	// before the sweep picks it up itself.
	StaleIntake         time.Duration
	L2BusinessDays      int
	L3BusinessDays      int
	OuterLimitationDays int
	FrozenAlertAge      time.Duration
	MaxParks            int
	Concurrency         int
}

// DefaultConfig: L2 within 5 business days, L3 within 10, expiry after 180
// days without activity, alerts after 30 days frozen.
func DefaultConfig() Config {
	return Config{
		StaleIntake:         5 * time.Minute,
		L2BusinessDays:      5,
		L3BusinessDays:      10,
		OuterLimitationDays: 180,
		FrozenAlertAge:      30 * 24 * time.Hour,
		MaxParks:            3,
		Concurrency:         4,
	}
}

// Action is what the sweep did to one request.
type Action string

const (
	ActionProcessed Action = "processed"
	ActionRetried   Action = "retried"
	ActionEscalated Action = "escalated"
	ActionExpired   Action = "expired"
	ActionAlerted   Action = "alerted"
	ActionLate      Action = "disbursement_escalated"
)

// Report summarizes one sweep.
type Report struct {
	Scanned int
	Actions map[Action]int
	Failed  int
}

// Monitor runs sweeps.
type Monitor struct {
	pipeline Pipeline
	cal      *calendar.Calendar
	cfg      Config
	logger   *slog.Logger
	metrics  *Metrics
	cron     *cron.Cron
}

type Option func(*Monitor)

func WithConfig(cfg Config) Option {
	return func(m *Monitor) {
		m.cfg = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

func New(p Pipeline, cal *calendar.Calendar, opts ...Option) *Monitor {
	m := &Monitor{
		pipeline: p,
		cal:      cal,
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cfg.Concurrency < 1 {
		m.cfg.Concurrency = 1
	}
	return m
}

// Start schedules the sweep. The first run happens on the first tick.
func (m *Monitor) Start(schedule string) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(m.logger.Handler(), slog.LevelInfo))
	m.cron = cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	if _, err := m.cron.AddFunc(schedule, func() {
		if _, err := m.SweepOnce(context.Background()); err != nil {
			m.logger.Error("monitor sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}
	m.logger.Info("scheduled monitor sweep", "schedule", schedule)
	m.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// SweepOnce makes one pass over every open request. One time is used for the
// whole pass. Failures on individual requests are logged and counted; the
// sweep carries on.
func (m *Monitor) SweepOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)
	ctx = requestcontext.WithPrincipal(ctx, requestcontext.Caller{Subject: "monitor", Role: string(models.RoleSystem)})

	reqs, err := m.pipeline.Open(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Scanned: len(reqs), Actions: make(map[Action]int)}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for _, req := range reqs {
		g.Go(func() error {
			action, err := m.check(gctx, req, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
				m.metrics.IncFailure()
				m.logger.WarnContext(gctx, "monitor action failed",
					"refund_id", req.ID.String(),
					"state", string(req.State),
					"error", err,
				)
			case action != "":
				report.Actions[action]++
				m.metrics.IncAction(string(action))
			}
			return nil
		})
	}
	_ = g.Wait()

	m.metrics.ObserveSweep(time.Since(start))
	m.logger.InfoContext(ctx, "monitor sweep completed",
		"scanned", report.Scanned,
		"failed", report.Failed,
		"escalated", report.Actions[ActionEscalated],
		"expired", report.Actions[ActionExpired],
	)
	return report, nil
}

// check decides what, if anything, is due for req.
func (m *Monitor) check(ctx context.Context, req *models.RefundRequest, now time.Time) (Action, error) {
	if m.expired(req, now) {
		_, err := m.pipeline.Expire(ctx, req.ID, "no activity within the outer limitation period")
		return ActionExpired, err
	}

	switch req.State {
	case models.StateReceived, models.StateAcknowledged, models.StateL1Screening:
		if now.Sub(req.StateEnteredAt) < m.cfg.StaleIntake {
			return "", nil
		}
		_, err := m.pipeline.Process(ctx, req.ID)
		return ActionProcessed, err

	case models.StatePendingRetry:
		if req.RetryCount >= m.cfg.MaxParks {
			return "", nil
		}
		_, err := m.pipeline.Retry(ctx, req.ID)
		return ActionRetried, err

	case models.StateL2Review:
		if m.cal.BusinessDaysBetween(req.StateEnteredAt, now) <= m.cfg.L2BusinessDays {
			return "", nil
		}
		_, err := m.pipeline.Escalate(ctx, req.ID)
		return ActionEscalated, err

	case models.StateL3Review:
		if m.cal.BusinessDaysBetween(req.StateEnteredAt, now) <= m.cfg.L3BusinessDays {
			return "", nil
		}
		if req.AlertRaised(models.AlertL3SLA) {
			return "", nil
		}
		_, err := m.pipeline.Escalate(ctx, req.ID)
		return ActionAlerted, err

	case models.StateFrozen:
		if now.Sub(req.StateEnteredAt) < m.cfg.FrozenAlertAge {
			return "", nil
		}
		if req.AlertRaised(models.AlertFrozen) {
			return "", nil
		}
		_, err := m.pipeline.AlertFrozen(ctx, req.ID, m.cfg.FrozenAlertAge)
		return ActionAlerted, err

	case models.StateDisbursing:
		if req.Disbursement == nil || req.Disbursement.CompletedAt != nil || now.Before(req.Disbursement.DueAt) {
			return "", nil
		}
		_, err := m.pipeline.EscalateDisbursement(ctx, req.ID)
		return ActionLate, err
	}
	return "", nil
}

// expired reports whether req has been idle past the outer limitation period
// in a state that may expire. Holds and payouts never expire.
func (m *Monitor) expired(req *models.RefundRequest, now time.Time) bool {
	if m.cfg.OuterLimitationDays <= 0 {
		return false
	}
	if !models.CanTransition(req.State, models.StateExpired) {
		return false
	}
	return calendar.CalendarDaysBetween(req.LastActivityAt, now) > m.cfg.OuterLimitationDays
}
