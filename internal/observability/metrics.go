// Package observability wires OpenTelemetry metrics and tracing for the
// benchmark pipeline and the orchestrator.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"bintly/internal/config"
	"bintly/internal/logging"
)

// MetricsCollector manages the pipeline metrics. A disabled collector is a
// valid zero-cost no-op.
type MetricsCollector struct {
	meter metric.Meter

	// Aggregation metrics.
	aggregationPasses   metric.Int64Counter
	aggregationDuration metric.Float64Histogram
	recordsIngested     metric.Int64Counter
	recordsRejected     metric.Int64Counter

	// Orchestrator metrics (the per-transition counters live in the
	// orchestrator package; these are the cycle-level ones).
	pollCycles metric.Int64Counter

	prometheusServer *http.Server
	logger           logging.Logger
}

// MetricsConfig configures the metrics collector.
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port"`
}

// MetricsFromConfig lifts the metrics settings out of the runtime config.
func MetricsFromConfig(cfg config.RuntimeConfig) MetricsConfig {
	return MetricsConfig{
		Enabled:        cfg.MetricsEnabled,
		PrometheusPort: cfg.MetricsPort,
	}
}

// NewMetricsCollector creates a metrics collector backed by a Prometheus
// exporter, optionally serving /metrics on its own port.
func NewMetricsCollector(config MetricsConfig, logger logging.Logger) (*MetricsCollector, error) {
	logger = logging.OrNop(logger)
	if !config.Enabled {
		return &MetricsCollector{logger: logger}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter("bintly")

	aggregationPasses, err := meter.Int64Counter(
		"bintly.aggregation.passes.total",
		metric.WithDescription("Completed aggregation passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregation_passes counter: %w", err)
	}
	aggregationDuration, err := meter.Float64Histogram(
		"bintly.aggregation.duration",
		metric.WithDescription("Aggregation pass duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregation_duration histogram: %w", err)
	}
	recordsIngested, err := meter.Int64Counter(
		"bintly.records.ingested.total",
		metric.WithDescription("Run records accepted into the store"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create records_ingested counter: %w", err)
	}
	recordsRejected, err := meter.Int64Counter(
		"bintly.records.rejected.total",
		metric.WithDescription("Run records rejected at a validation boundary"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create records_rejected counter: %w", err)
	}
	pollCycles, err := meter.Int64Counter(
		"bintly.orchestrator.poll_cycles.total",
		metric.WithDescription("Completed poll cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll_cycles counter: %w", err)
	}

	collector := &MetricsCollector{
		meter:               meter,
		aggregationPasses:   aggregationPasses,
		aggregationDuration: aggregationDuration,
		recordsIngested:     recordsIngested,
		recordsRejected:     recordsRejected,
		pollCycles:          pollCycles,
		logger:              logger,
	}

	if config.PrometheusPort > 0 {
		if err := collector.StartPrometheusServer(config.PrometheusPort); err != nil {
			return nil, fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}
	return collector, nil
}

// StartPrometheusServer serves /metrics for scraping.
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())

	m.prometheusServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		m.logger.Info("prometheus metrics server listening on :%d", port)
		if err := m.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("prometheus server error: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the scrape endpoint.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m.prometheusServer != nil {
		return m.prometheusServer.Shutdown(ctx)
	}
	return nil
}

// RecordAggregationPass records one completed pass with its duration.
func (m *MetricsCollector) RecordAggregationPass(ctx context.Context, version string, status string, duration time.Duration) {
	if m.aggregationPasses == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("benchmark_version", version),
		attribute.String("status", status),
	}
	m.aggregationPasses.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.aggregationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordIngest records the outcome of one ingestion pass.
func (m *MetricsCollector) RecordIngest(ctx context.Context, source string, accepted, rejected int) {
	if m.recordsIngested == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.recordsIngested.Add(ctx, int64(accepted), attrs)
	m.recordsRejected.Add(ctx, int64(rejected), attrs)
}

// RecordPollCycle records one completed poll cycle.
func (m *MetricsCollector) RecordPollCycle(ctx context.Context, replies int) {
	if m.pollCycles == nil {
		return
	}
	m.pollCycles.Add(ctx, 1, metric.WithAttributes(attribute.Int("replies", replies)))
}
