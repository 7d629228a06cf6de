package metrics

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	flowRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "runs_total",
			Help:      "Total number of submission runs",
		},
		[]string{"mode", "status"}, // mainnet/testnet/demo, success/error
	)

	flowRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "run_duration_seconds",
			Help:      "Time from signing start to the terminal status",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	flowTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "transactions_total",
			Help:      "Total number of transactions sent through a wallet",
		},
		[]string{"mode", "step", "status"},
	)

	flowLastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "last_run_timestamp",
			Help:      "Timestamp of the last finished submission run",
		},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "sessions_active",
			Help:      "Number of page sessions held in memory",
		},
	)
)

// FlowMetrics records submission outcomes in prometheus and, when a statsd client is set,
// mirrors the counters to DataDog.
type FlowMetrics struct {
	statsd statsd.ClientInterface
	logger *logrus.Logger
}

func NewFlowMetrics(sd statsd.ClientInterface, logger *logrus.Logger) *FlowMetrics {
	return &FlowMetrics{
		statsd: sd,
		logger: logger,
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *FlowMetrics) RecordRun(mode string, success bool, duration time.Duration) {
	status := statusLabel(success)

	flowRunsTotal.WithLabelValues(mode, status).Inc()
	flowRunDuration.WithLabelValues(mode).Observe(duration.Seconds())
	flowLastRunTimestamp.Set(float64(time.Now().Unix()))

	if m.statsd == nil {
		return
	}
	tags := []string{"mode:" + mode, "status:" + status}
	if err := m.statsd.Incr(namespace+".flow.runs", tags, 1); err != nil {
		m.logger.Debugf("statsd: %v", err)
	}
	if err := m.statsd.Timing(namespace+".flow.run_duration", duration, tags, 1); err != nil {
		m.logger.Debugf("statsd: %v", err)
	}
}

func (m *FlowMetrics) RecordTransaction(mode, step string, success bool) {
	status := statusLabel(success)

	flowTransactionsTotal.WithLabelValues(mode, step, status).Inc()

	if m.statsd == nil {
		return
	}
	tags := []string{"mode:" + mode, "step:" + step, "status:" + status}
	if err := m.statsd.Incr(namespace+".flow.transactions", tags, 1); err != nil {
		m.logger.Debugf("statsd: %v", err)
	}
}

// SetActiveSessions updates the in-memory session gauge
func SetActiveSessions(n int) {
	sessionsActive.Set(float64(n))
}
