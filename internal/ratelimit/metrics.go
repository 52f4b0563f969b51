package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts limiter decisions. A nil *Metrics is a no-op.
type Metrics struct {
	rejected *prometheus.CounterVec
	errors   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adjudicator_ratelimit_rejected_total",
			Help: "Requests rejected by a rate limit",
		}, []string{"scope"}),
		errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "adjudicator_ratelimit_store_errors_total",
			Help: "Limit checks that failed open because the store was unavailable",
		}),
	}
}

func (m *Metrics) IncRejected(scope string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncStoreError() {
	if m == nil {
		return
	}
	m.errors.Inc()
}
