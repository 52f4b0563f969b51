package registry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registry cache effectiveness. A nil *Metrics is a no-op.
type Metrics struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "adjudicator_registry_cache_hits_total",
			Help: "Stakeholder profile lookups served from cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "adjudicator_registry_cache_misses_total",
			Help: "Stakeholder profile lookups that went to the registry",
		}),
		cacheDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "adjudicator_registry_cache_lookup_duration_seconds",
			Help:    "Time spent on the cache read",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

func (m *Metrics) ObserveHit(start time.Time) {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
	m.cacheDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveMiss(start time.Time) {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
	m.cacheDuration.Observe(time.Since(start).Seconds())
}
