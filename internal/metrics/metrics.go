// Package metrics provides Prometheus metrics collection for the signer service.
//
// This package includes:
//   - HTTP request metrics (count, latency, in flight) via Echo middleware
//   - submission run and per-transaction outcome metrics, optionally mirrored to DataDog statsd
//   - a metrics HTTP server on a configurable port
//
// Usage:
//
//	metricsServer := metrics.StartMetricsServer(cfg.Metrics, []string{metrics.ServiceHTTP, metrics.ServiceFlow}, logger)
//	defer metricsServer.Stop(context.Background())
//
//	e.Use(metrics.HTTPMiddleware("/healthz"))
//	runner := flow.NewRunner(logger, notifier, metrics.NewFlowMetrics(nil, logger))
package metrics
