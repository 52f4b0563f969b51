package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the sweep. A nil *Metrics is a no-op.
type Metrics struct {
	actions  *prometheus.CounterVec
	failures prometheus.Counter
	duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adjudicator_monitor_actions_total",
			Help: "Transitions and alerts forced by the monitor",
		}, []string{"action"}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "adjudicator_monitor_failures_total",
			Help: "Monitor actions that returned an error",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "adjudicator_monitor_sweep_duration_seconds",
			Help:    "Duration of a full monitor sweep",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncAction(action string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action).Inc()
}

func (m *Metrics) IncFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
