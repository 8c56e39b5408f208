package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qcase"

// Metrics holds the Prometheus collectors for statement execution.
type Metrics struct {
	StatementTotal    *prometheus.CounterVec
	StatementDuration *prometheus.HistogramVec
	StatementErrors   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		StatementTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "statement_total",
				Help:      "Total number of statements executed",
			},
			[]string{"op"},
		),
		StatementDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "statement_duration_seconds",
				Help:      "Histogram of statement latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		StatementErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "statement_errors_total",
				Help:      "Total number of failed statements",
			},
			[]string{"op"},
		),
	}
}

func (m *Metrics) observe(op string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.StatementTotal.WithLabelValues(op).Inc()
	m.StatementDuration.WithLabelValues(op).Observe(took.Seconds())
	if err != nil {
		m.StatementErrors.WithLabelValues(op).Inc()
	}
}
