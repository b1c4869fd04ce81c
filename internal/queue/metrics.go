package queue

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/sales-insight/internal/obs"
)

// Metrics counts enqueue attempts and processed tasks. A nil *Metrics records nothing.
type Metrics struct {
	EnqueuedTotal  *prometheus.CounterVec
	ProcessedTotal *prometheus.CounterVec
}

// NewMetrics registers queue collectors on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		EnqueuedTotal: obs.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_enqueued_total",
			Help:      "Tasks submitted to the queue grouped by type and outcome.",
		}, []string{"type", "status"})),
		ProcessedTotal: obs.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_processed_total",
			Help:      "Total tasks processed grouped by type and status.",
		}, []string{"type", "status"})),
	}
}

func (m *Metrics) enqueued(taskType, status string) {
	if m == nil {
		return
	}
	m.EnqueuedTotal.WithLabelValues(taskType, status).Inc()
}

func (m *Metrics) processed(taskType, status string) {
	if m == nil {
		return
	}
	m.ProcessedTotal.WithLabelValues(taskType, status).Inc()
}
