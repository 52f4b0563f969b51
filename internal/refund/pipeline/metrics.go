package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the pipeline. A nil *Metrics is a no-op.
type Metrics struct {
	transitions    *prometheus.CounterVec
	l1Outcomes     *prometheus.CounterVec
	l1Duration     prometheus.Histogram
	parked         prometheus.Counter
	reportFailures prometheus.Counter
	decisions      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adjudicator_refund_transitions_total",
			Help: "Committed state transitions",
		}, []string{"from", "to"}),
		l1Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adjudicator_l1_outcomes_total",
			Help: "Automated screening outcomes",
		}, []string{"outcome"}),
		l1Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "adjudicator_l1_duration_seconds",
			Help:    "Time spent in automated screening",
			Buckets: prometheus.DefBuckets,
		}),
		parked: factory.NewCounter(prometheus.CounterOpts{
			Name: "adjudicator_refund_parked_total",
			Help: "Requests parked because a collaborator was unavailable",
		}),
		reportFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "adjudicator_suspicion_report_failures_total",
			Help: "Suspicion reports that could not be delivered",
		}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adjudicator_refund_decisions_total",
			Help: "Decision records by outcome and tier",
		}, []string{"outcome", "tier"}),
	}
}

func (m *Metrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveL1(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.l1Outcomes.WithLabelValues(outcome).Inc()
	m.l1Duration.Observe(seconds)
}

func (m *Metrics) IncParked() {
	if m == nil {
		return
	}
	m.parked.Inc()
}

func (m *Metrics) IncReportFailure() {
	if m == nil {
		return
	}
	m.reportFailures.Inc()
}

func (m *Metrics) IncDecision(outcome string, tier string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome, tier).Inc()
}
