package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
}

func TestLogger_ContextFields(t *testing.T) {
	logger, logs := NewTestLogger()

	ctx := WithSessionID(context.Background(), "sess-123")
	ctx = WithRequestID(ctx, "req-456")
	logger.Info(ctx, "hello", zap.String("extra", "field"))

	entries := logs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "sess-123", fields["session.id"])
	assert.Equal(t, "req-456", fields["request.id"])
	assert.Equal(t, "field", fields["extra"])
}

func TestLogger_With(t *testing.T) {
	logger, logs := NewTestLogger()

	child := logger.With(zap.String("component", "bridge"))
	child.Warn(context.Background(), "slow subscriber")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "bridge", entries[0].ContextMap()["component"])
}

func TestLogger_Named(t *testing.T) {
	logger, logs := NewTestLogger()

	logger.Named("hooks").Info(context.Background(), "registered")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hooks", entries[0].LoggerName)
}

func TestContextFields_Empty(t *testing.T) {
	fields := ContextFields(context.Background())
	assert.Empty(t, fields)
}
