package disbursement

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the disbursement SLA. A nil *Metrics is a no-op.
type Metrics struct {
	breaches  *prometheus.CounterVec
	completed *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		breaches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adjudicator_disbursement_sla_breaches_total",
			Help: "Disbursement SLA breaches by resulting rate bucket",
		}, []string{"bucket"}),
		completed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adjudicator_disbursements_completed_total",
			Help: "Completed disbursements by timeliness",
		}, []string{"late"}),
	}
}

func (m *Metrics) IncBreach(bucket int) {
	if m == nil {
		return
	}
	m.breaches.WithLabelValues(strconv.Itoa(bucket)).Inc()
}

func (m *Metrics) ObserveCompleted(late bool) {
	if m == nil {
		return
	}
	m.completed.WithLabelValues(strconv.FormatBool(late)).Inc()
}
