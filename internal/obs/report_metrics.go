package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Report run results used as the "result" label.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// ReportMetrics groups collectors describing seller report runs.
// A nil *ReportMetrics is valid and records nothing.
type ReportMetrics struct {
	Runs       *prometheus.CounterVec
	RunLatency *prometheus.HistogramVec
	Skipped    *prometheus.CounterVec
	Cache      *prometheus.CounterVec
}

// NewReportMetrics registers and returns report collectors.
func NewReportMetrics(namespace string, reg prometheus.Registerer) *ReportMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &ReportMetrics{
		Runs: Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_runs_total",
			Help:      "Count of seller report runs by data source and outcome.",
		}, []string{"source", "result"})),
		RunLatency: Register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_run_duration_ms",
			Help:      "Seller report run latency in milliseconds, including dataset load.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}, []string{"source"})),
		Skipped: Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_skipped_records_total",
			Help:      "Receipts and receipt lines ignored because they reference unknown sellers or products.",
		}, []string{"kind"})),
		Cache: Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_total",
			Help:      "Report cache lookups by result.",
		}, []string{"result"})),
	}
}

// ObserveRun records one run outcome and its duration.
func (m *ReportMetrics) ObserveRun(source, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(source, result).Inc()
	m.RunLatency.WithLabelValues(source).Observe(DurationMillis(d))
}

// AddSkipped counts skipped receipts and receipt lines.
func (m *ReportMetrics) AddSkipped(receipts, items int) {
	if m == nil {
		return
	}
	if receipts > 0 {
		m.Skipped.WithLabelValues("receipt").Add(float64(receipts))
	}
	if items > 0 {
		m.Skipped.WithLabelValues("item").Add(float64(items))
	}
}

// CacheResult counts a cache lookup; result is typically "hit", "miss" or "error".
func (m *ReportMetrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.Cache.WithLabelValues(result).Inc()
}
