package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"adjudicator/internal/refund/models"
	"adjudicator/pkg/calendar"
	id "adjudicator/pkg/domain"
	"adjudicator/pkg/requestcontext"
)

// fakePipeline records which operation the sweep invoked per request.
type fakePipeline struct {
	mu      sync.Mutex
	open    []*models.RefundRequest
	openErr error
	fail    map[id.RefundID]error
	calls   map[id.RefundID]string
	callers []requestcontext.Caller
	times   []time.Time
}

func newFakePipeline(reqs ...*models.RefundRequest) *fakePipeline {
	return &fakePipeline{open: reqs, fail: map[id.RefundID]error{}, calls: map[id.RefundID]string{}}
}

func (f *fakePipeline) Open(context.Context) ([]*models.RefundRequest, error) {
	return f.open, f.openErr
}

func (f *fakePipeline) record(ctx context.Context, refundID id.RefundID, op string) (*models.RefundRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[refundID] = op
	f.callers = append(f.callers, requestcontext.Principal(ctx))
	f.times = append(f.times, requestcontext.Now(ctx))
	return nil, f.fail[refundID]
}

func (f *fakePipeline) Process(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	return f.record(ctx, refundID, "process")
}

func (f *fakePipeline) Retry(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	return f.record(ctx, refundID, "retry")
}

func (f *fakePipeline) Escalate(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	return f.record(ctx, refundID, "escalate")
}

func (f *fakePipeline) Expire(ctx context.Context, refundID id.RefundID, _ string) (*models.RefundRequest, error) {
	return f.record(ctx, refundID, "expire")
}

func (f *fakePipeline) AlertFrozen(ctx context.Context, refundID id.RefundID, _ time.Duration) (*models.RefundRequest, error) {
	return f.record(ctx, refundID, "alert_frozen")
}

func (f *fakePipeline) EscalateDisbursement(ctx context.Context, refundID id.RefundID) (*models.RefundRequest, error) {
	return f.record(ctx, refundID, "escalate_disbursement")
}

type MonitorSuite struct {
	suite.Suite
	now time.Time
	cal *calendar.Calendar
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorSuite))
}

func (s *MonitorSuite) SetupTest() {
	// Monday.
	s.now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.cal = calendar.New(time.UTC)
}

func (s *MonitorSuite) request(state models.State, entered time.Time) *models.RefundRequest {
	return &models.RefundRequest{
		ID:             id.RefundID(uuid.New()),
		State:          state,
		StateEnteredAt: entered,
		LastActivityAt: entered,
	}
}

func (s *MonitorSuite) sweep(p *fakePipeline) Report {
	m := New(p, s.cal)
	report, err := m.SweepOnce(requestcontext.WithTime(context.Background(), s.now))
	s.Require().NoError(err)
	return report
}

func (s *MonitorSuite) daysAgo(n int) time.Time {
	return s.now.AddDate(0, 0, -n)
}

// =============================================================================
// Review SLA
// =============================================================================

// Justification: a late L2 review must reach the committee without anyone
// touching the request.
func (s *MonitorSuite) TestL2BreachEscalates() {
	late := s.request(models.StateL2Review, time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC))   // 6 business days
	onTime := s.request(models.StateL2Review, time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)) // 4 business days
	p := newFakePipeline(late, onTime)

	report := s.sweep(p)

	s.Equal("escalate", p.calls[late.ID])
	s.NotContains(p.calls, onTime.ID)
	s.Equal(1, report.Actions[ActionEscalated])
	s.Equal(2, report.Scanned)
}

// Justification: weekends do not count toward the review SLA.
func (s *MonitorSuite) TestL2WeekendDoesNotCount() {
	// Entered Monday a week ago: five business days exactly.
	req := s.request(models.StateL2Review, s.daysAgo(7))
	p := newFakePipeline(req)

	s.sweep(p)

	s.Empty(p.calls)
}

// Justification: a late committee is alerted once per breach, not on every pass.
func (s *MonitorSuite) TestL3BreachAlertsOnce() {
	entered := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC) // 11 business days
	fresh := s.request(models.StateL3Review, entered)
	alerted := s.request(models.StateL3Review, entered)
	alerted.RaiseAlert(models.AlertL3SLA, s.daysAgo(1))
	p := newFakePipeline(fresh, alerted)

	report := s.sweep(p)

	s.Equal("escalate", p.calls[fresh.ID])
	s.NotContains(p.calls, alerted.ID)
	s.Equal(1, report.Actions[ActionAlerted])
}

// =============================================================================
// Expiry and holds
// =============================================================================

// Justification: requests idle past the outer limitation period expire; holds
// are never expired by the clock.
func (s *MonitorSuite) TestOuterLimitationExpires() {
	stale := s.request(models.StateL2Review, s.daysAgo(200))
	frozen := s.request(models.StateFrozen, s.daysAgo(200))
	frozen.RaiseAlert(models.AlertFrozen, s.daysAgo(150))
	p := newFakePipeline(stale, frozen)

	report := s.sweep(p)

	s.Equal("expire", p.calls[stale.ID])
	s.NotContains(p.calls, frozen.ID)
	s.Equal(1, report.Actions[ActionExpired])
}

func (s *MonitorSuite) TestLongHoldRaisesAlert() {
	old := s.request(models.StateFrozen, s.daysAgo(40))
	recent := s.request(models.StateFrozen, s.daysAgo(3))
	p := newFakePipeline(old, recent)

	s.sweep(p)

	s.Equal("alert_frozen", p.calls[old.ID])
	s.NotContains(p.calls, recent.ID)
}

// =============================================================================
// Intake, retries and payouts
// =============================================================================

func (s *MonitorSuite) TestStaleIntakeIsProcessed() {
	stale := s.request(models.StateAcknowledged, s.now.Add(-10*time.Minute))
	fresh := s.request(models.StateReceived, s.now.Add(-time.Minute))
	p := newFakePipeline(stale, fresh)

	s.sweep(p)

	s.Equal("process", p.calls[stale.ID])
	s.NotContains(p.calls, fresh.ID)
}

// Justification: parked requests are retried a bounded number of times and
// then left in the operator queue, never rejected.
func (s *MonitorSuite) TestParkedRequestsRetryUntilLimit() {
	retry := s.request(models.StatePendingRetry, s.now.Add(-time.Hour))
	retry.RetryCount = 1
	exhausted := s.request(models.StatePendingRetry, s.now.Add(-time.Hour))
	exhausted.RetryCount = 3
	p := newFakePipeline(retry, exhausted)

	s.sweep(p)

	s.Equal("retry", p.calls[retry.ID])
	s.NotContains(p.calls, exhausted.ID)
}

func (s *MonitorSuite) TestOverduePayoutEscalates() {
	due := s.request(models.StateDisbursing, s.daysAgo(10))
	due.Disbursement = &models.Disbursement{DueAt: s.daysAgo(1)}
	notDue := s.request(models.StateDisbursing, s.daysAgo(2))
	notDue.Disbursement = &models.Disbursement{DueAt: s.now.AddDate(0, 0, 3)}
	p := newFakePipeline(due, notDue)

	report := s.sweep(p)

	s.Equal("escalate_disbursement", p.calls[due.ID])
	s.NotContains(p.calls, notDue.ID)
	s.Equal(1, report.Actions[ActionLate])
}

// =============================================================================
// Sweep behaviour
// =============================================================================

// Justification: one failing request must not stop the rest of the sweep.
func (s *MonitorSuite) TestFailureDoesNotAbortSweep() {
	a := s.request(models.StateL2Review, s.daysAgo(14))
	b := s.request(models.StateL2Review, s.daysAgo(14))
	p := newFakePipeline(a, b)
	p.fail[a.ID] = errors.New("request is being updated; retry")

	report := s.sweep(p)

	s.Equal(1, report.Failed)
	s.Equal(1, report.Actions[ActionEscalated])
	s.Len(p.calls, 2)
}

// Justification: every action of one pass sees the same time and runs as the
// monitor, so audit records attribute it correctly.
func (s *MonitorSuite) TestSweepUsesOneTimeAndSystemPrincipal() {
	p := newFakePipeline(
		s.request(models.StateL2Review, s.daysAgo(14)),
		s.request(models.StateFrozen, s.daysAgo(40)),
	)

	s.sweep(p)

	s.Require().Len(p.times, 2)
	for i := range p.times {
		s.True(p.times[i].Equal(s.now))
		s.Equal("monitor", p.callers[i].Subject)
		s.Equal(string(models.RoleSystem), p.callers[i].Role)
	}
}

func TestSweepOnce_OpenError(t *testing.T) {
	p := newFakePipeline()
	p.openErr = errors.New("connection refused")
	m := New(p, calendar.New(time.UTC), WithConfig(Config{Concurrency: 0}))

	_, err := m.SweepOnce(context.Background())
	require.Error(t, err)
}

func TestStart_InvalidSchedule(t *testing.T) {
	m := New(newFakePipeline(), calendar.New(time.UTC))
	assert.Error(t, m.Start("not a schedule"))
	m.Stop()
}
