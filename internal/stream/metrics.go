package stream

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const streamInstrumentationName = "github.com/fyrsmithlabs/sessiond/internal/stream"

// Metrics holds streaming bridge metrics.
type Metrics struct {
	meter  metric.Meter
	logger *zap.Logger

	chunksPublished    metric.Int64Counter
	framesDropped      metric.Int64Counter
	sessionsTerminated metric.Int64Counter
	subscribersActive  metric.Int64UpDownCounter
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  otel.Meter(streamInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.chunksPublished, err = m.meter.Int64Counter(
		"sessiond.stream.chunks_published_total",
		metric.WithDescription("Chunks published through the bridge, labeled by chunk type (text, tool_use, tool_result, done, error)."),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		m.logger.Warn("failed to create chunks counter", zap.Error(err))
	}

	m.framesDropped, err = m.meter.Int64Counter(
		"sessiond.stream.frames_dropped_total",
		metric.WithDescription("Chunks that produced no wire frame because they carried no meaningful payload."),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		m.logger.Warn("failed to create frames dropped counter", zap.Error(err))
	}

	m.sessionsTerminated, err = m.meter.Int64Counter(
		"sessiond.stream.sessions_terminated_total",
		metric.WithDescription("Session streams closed by a terminal chunk or producer error."),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		m.logger.Warn("failed to create sessions terminated counter", zap.Error(err))
	}

	m.subscribersActive, err = m.meter.Int64UpDownCounter(
		"sessiond.stream.subscribers_active",
		metric.WithDescription("Number of currently attached stream subscribers across all sessions."),
		metric.WithUnit("{subscriber}"),
	)
	if err != nil {
		m.logger.Warn("failed to create subscribers gauge", zap.Error(err))
	}
}

// ChunkPublished records one published chunk.
func (m *Metrics) ChunkPublished(t ChunkType) {
	if m.chunksPublished == nil {
		return
	}
	m.chunksPublished.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("chunk_type", string(t)),
	))
}

// FrameDropped records a chunk that mapped to no frame.
func (m *Metrics) FrameDropped() {
	if m.framesDropped == nil {
		return
	}
	m.framesDropped.Add(context.Background(), 1)
}

// SessionTerminated records a closed session stream.
func (m *Metrics) SessionTerminated() {
	if m.sessionsTerminated == nil {
		return
	}
	m.sessionsTerminated.Add(context.Background(), 1)
}

// SubscriberAttached increments the active subscriber gauge.
func (m *Metrics) SubscriberAttached() {
	if m.subscribersActive == nil {
		return
	}
	m.subscribersActive.Add(context.Background(), 1)
}

// SubscriberDetached decrements the active subscriber gauge.
func (m *Metrics) SubscriberDetached() {
	if m.subscribersActive == nil {
		return
	}
	m.subscribersActive.Add(context.Background(), -1)
}
