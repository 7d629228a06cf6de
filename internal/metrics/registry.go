package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const namespace = "signer"

const (
	ServiceHTTP = "http"
	ServiceFlow = "flow"
)

// RegisterMetrics registers metrics for the specified services
func RegisterMetrics(services []string, logger *logrus.Logger) {
	registerIfNotExists(collectors.NewGoCollector(), "go_collector", logger)
	registerIfNotExists(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), "process_collector", logger)

	for _, service := range services {
		switch service {
		case ServiceHTTP:
			registerIfNotExists(httpRequestsTotal, "http_requests_total", logger)
			registerIfNotExists(httpRequestDuration, "http_request_duration", logger)
			registerIfNotExists(httpRequestsInFlight, "http_requests_in_flight", logger)
			registerIfNotExists(sessionsActive, "sessions_active", logger)
		case ServiceFlow:
			registerIfNotExists(flowRunsTotal, "flow_runs_total", logger)
			registerIfNotExists(flowRunDuration, "flow_run_duration", logger)
			registerIfNotExists(flowTransactionsTotal, "flow_transactions_total", logger)
			registerIfNotExists(flowLastRunTimestamp, "flow_last_run_timestamp", logger)
		default:
			logger.Warnf("Unknown service type for metrics registration: %s", service)
		}
	}
}

func registerIfNotExists(collector prometheus.Collector, name string, logger *logrus.Logger) {
	if err := prometheus.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegErr) {
			logger.Debugf("%s already registered", name)
		} else {
			logger.Errorf("Failed to register %s: %v", name, err)
		}
	}
}
