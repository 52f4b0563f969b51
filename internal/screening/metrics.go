package screening

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"adjudicator/internal/refund/models"
)

// Metrics for screening outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	verdicts *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adjudicator_screening_verdicts_total",
			Help: "Screening verdicts by risk level",
		}, []string{"level"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adjudicator_screening_failures_total",
			Help: "Screenings that could not complete, by failing collaborator",
		}, []string{"collaborator"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "adjudicator_screening_duration_seconds",
			Help:    "Time to produce a verdict",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveVerdict(level models.RiskLevel, d time.Duration) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(string(level)).Inc()
	m.latency.Observe(d.Seconds())
}

func (m *Metrics) ObserveFailure(collaborator string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(collaborator).Inc()
}
