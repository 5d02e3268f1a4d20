package zap

import (
	"context"
	"errors"
	"strings"
	"testing"

	logpkg "github.com/LerianStudio/lib-swap/swap/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(level)

	return Wrap(zap.New(core)), observed
}

func TestNilLoggerFallsBackToNop(t *testing.T) {
	var nilLogger *Logger

	assert.NotPanics(t, func() {
		nilLogger.Log(context.Background(), logpkg.LevelInfo, "message")
	})

	assert.NotPanics(t, func() {
		Wrap(nil).Log(context.Background(), logpkg.LevelError, "message")
	})
}

func TestLogDispatchesLevels(t *testing.T) {
	logger, observed := newObservedLogger(zapcore.DebugLevel)
	ctx := context.Background()

	logger.Log(ctx, logpkg.LevelDebug, "debug message")
	logger.Log(ctx, logpkg.LevelInfo, "info message", logpkg.String("swap_id", "s-1"))
	logger.Log(ctx, logpkg.LevelWarn, "warn message")
	logger.Log(ctx, logpkg.LevelError, "error message", logpkg.Err(errors.New("boom")))

	entries := observed.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "s-1", entries[1].ContextMap()["swap_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestLogSanitizesStringFields(t *testing.T) {
	logger, observed := newObservedLogger(zapcore.DebugLevel)

	logger.Log(context.Background(), logpkg.LevelInfo, "forged", logpkg.String("address", "alice\nlevel=error"))

	entries := observed.All()
	require.Len(t, entries, 1)

	address, ok := entries[0].ContextMap()["address"].(string)
	require.True(t, ok)
	assert.False(t, strings.Contains(address, "\n"))
	assert.Equal(t, `alice\nlevel=error`, address)
}

func TestLogAppendsTraceCorrelation(t *testing.T) {
	logger, observed := newObservedLogger(zapcore.DebugLevel)

	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.Log(ctx, logpkg.LevelInfo, "correlated")

	entries := observed.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}

func TestWithDoesNotMutateParent(t *testing.T) {
	logger, observed := newObservedLogger(zapcore.DebugLevel)
	child := logger.With(logpkg.String("leg", "net-transfer"))

	logger.Log(context.Background(), logpkg.LevelInfo, "parent")
	child.Log(context.Background(), logpkg.LevelInfo, "child")

	entries := observed.All()
	require.Len(t, entries, 2)

	_, parentHasLeg := entries[0].ContextMap()["leg"]
	assert.False(t, parentHasLeg)
	assert.Equal(t, "net-transfer", entries[1].ContextMap()["leg"])
}

func TestEnabledFollowsCoreLevel(t *testing.T) {
	logger, _ := newObservedLogger(zapcore.WarnLevel)

	assert.True(t, logger.Enabled(logpkg.LevelError))
	assert.True(t, logger.Enabled(logpkg.LevelWarn))
	assert.False(t, logger.Enabled(logpkg.LevelInfo))
	assert.False(t, logger.Enabled(logpkg.LevelDebug))
}

func TestSyncRespectsCanceledContext(t *testing.T) {
	logger, _ := newObservedLogger(zapcore.DebugLevel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, logger.Sync(ctx), context.Canceled)
	assert.NoError(t, logger.Sync(context.Background()))
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing library name",
			cfg:     Config{Environment: EnvironmentProduction},
			wantErr: "OTelLibraryName is required",
		},
		{
			name:    "unknown environment",
			cfg:     Config{Environment: "moon", OTelLibraryName: "swap"},
			wantErr: "invalid environment",
		},
		{
			name:    "bad level",
			cfg:     Config{Environment: EnvironmentProduction, Level: "loud", OTelLibraryName: "swap"},
			wantErr: "invalid level",
		},
		{
			name:    "zap-only level",
			cfg:     Config{Environment: EnvironmentProduction, Level: "fatal", OTelLibraryName: "swap"},
			wantErr: "invalid level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewParsesLevel(t *testing.T) {
	logger, err := New(Config{Environment: EnvironmentLocal, Level: " WARNING ", OTelLibraryName: "swap"})
	require.NoError(t, err)

	assert.True(t, logger.Enabled(logpkg.LevelWarn))
	assert.False(t, logger.Enabled(logpkg.LevelInfo))
}

func TestNewBuildsLogger(t *testing.T) {
	logger, err := New(Config{Environment: EnvironmentLocal, OTelLibraryName: "swap"})
	require.NoError(t, err)

	assert.True(t, logger.Enabled(logpkg.LevelDebug))
	assert.NotNil(t, logger.Raw())
}
