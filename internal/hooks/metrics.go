package hooks

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const hooksInstrumentationName = "github.com/fyrsmithlabs/sessiond/internal/hooks"

// Dispatch outcomes recorded per hook invocation.
const (
	outcomeResponded = "responded"
	outcomeAbstained = "abstained"
	outcomeFailed    = "failed"
)

// Metrics holds hook execution metrics.
type Metrics struct {
	meter      metric.Meter
	logger     *zap.Logger
	executions metric.Int64Counter
	skips      metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  otel.Meter(hooksInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.executions, err = m.meter.Int64Counter(
		"sessiond.hooks.executions_total",
		metric.WithDescription("Total hook invocations labeled by lifecycle event and outcome (responded, abstained, failed)."),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create executions counter", zap.Error(err))
	}

	m.skips, err = m.meter.Int64Counter(
		"sessiond.hooks.skips_total",
		metric.WithDescription("Hooks skipped because configuration disabled them, labeled by lifecycle event."),
		metric.WithUnit("{skip}"),
	)
	if err != nil {
		m.logger.Warn("failed to create skips counter", zap.Error(err))
	}

	m.duration, err = m.meter.Float64Histogram(
		"sessiond.hooks.handler_duration_seconds",
		metric.WithDescription("Hook handler execution time in seconds, labeled by lifecycle event."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}
}

// RecordExecution records one hook invocation with its outcome.
func (m *Metrics) RecordExecution(ctx context.Context, event LifecycleEvent, outcome string) {
	if m.executions == nil {
		return
	}
	m.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", string(event)),
		attribute.String("outcome", outcome),
	))
}

// RecordSkip records a configuration-governed skip.
func (m *Metrics) RecordSkip(ctx context.Context, event LifecycleEvent) {
	if m.skips == nil {
		return
	}
	m.skips.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", string(event)),
	))
}

// RecordDuration records how long a handler ran.
func (m *Metrics) RecordDuration(ctx context.Context, event LifecycleEvent, d time.Duration) {
	if m.duration == nil {
		return
	}
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("event", string(event)),
	))
}
