// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure: JSON logging via slog,
// Prometheus metrics for authorization decisions and HTTP traffic, and OTLP
// trace/metric export.
//
// # Structured Logging
//
// Create a logger and enrich it per request:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("subject_id", subject.ID).Info("identity resolved")
//
// Request-scoped fields travel through context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	observability.FromContext(ctx).Warn("access denied")
//
// # Prometheus Metrics
//
// Initialize metrics against a registry:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordAuthzDecision("booking", "view", true, elapsed)
//
// # OpenTelemetry
//
// InitOTel wires OTLP gRPC exporters when enabled and returns no-op providers
// otherwise, so call sites never branch on configuration.
//
// # Related Packages
//
//   - pkg/authz: decisions recorded through Metrics
//   - pkg/middleware: request id and logger injection
package observability
