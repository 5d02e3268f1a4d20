package assert

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	swapzap "github.com/LerianStudio/lib-swap/swap/zap"
)

func newObservedAsserter(t *testing.T) (*Asserter, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)

	return New(swapzap.Wrap(zap.New(core)), "transfer"), logs
}

func TestThatPasses(t *testing.T) {
	t.Parallel()

	a, logs := newObservedAsserter(t)

	require.NoError(t, a.That(context.Background(), true, "unused"))
	require.NoError(t, a.NotEmpty(context.Background(), "x", "unused"))
	assert.Zero(t, logs.Len())
}

func TestThatFails(t *testing.T) {
	t.Parallel()

	a, logs := newObservedAsserter(t)

	err := a.That(context.Background(), false, "fee exceeds gross", "fee", 11, "gross", 10)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAssertionFailed)

	var assertionErr *AssertionError
	require.True(t, errors.As(err, &assertionErr))
	assert.Equal(t, "That", assertionErr.Assertion)
	assert.Equal(t, "transfer", assertionErr.Component)
	assert.Equal(t, "fee=11 gross=10", assertionErr.Details)
	assert.Contains(t, err.Error(), "fee exceeds gross")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.True(t, strings.HasPrefix(entry.Message, "ASSERTION FAILED"))
	assert.Equal(t, "That", entry.ContextMap()["assertion"])
}

func TestNeverAndNotEmpty(t *testing.T) {
	t.Parallel()

	a, _ := newObservedAsserter(t)

	require.ErrorIs(t, a.Never(context.Background(), "unreachable"), ErrAssertionFailed)
	require.ErrorIs(t, a.NotEmpty(context.Background(), "", "id required"), ErrAssertionFailed)
}

func TestOddKeyValuePairs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "k=MISSING_VALUE", formatPairs([]any{"k"}))
	assert.Empty(t, formatPairs(nil))
}

func TestTruncateValue(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", maxValueLength+10)
	got := truncateValue(long)
	assert.True(t, strings.HasSuffix(got, "(truncated 10 chars)"))
	assert.Equal(t, "short", truncateValue("short"))
}

func TestNilAsserterStillFails(t *testing.T) {
	t.Parallel()

	var a *Asserter

	err := a.That(context.Background(), false, "nil receiver")
	require.ErrorIs(t, err, ErrAssertionFailed)
}

func TestFailureRecordsSpanEvent(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	a, _ := newObservedAsserter(t)
	_ = a.That(ctx, false, "broken")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	var found bool

	for _, ev := range spans[0].Events() {
		if ev.Name == SpanEventName {
			found = true
		}
	}

	assert.True(t, found, "expected %q span event", SpanEventName)
	assert.Equal(t, "assertion failed in transfer", spans[0].Status().Description)
}

func TestFailureIncrementsCounter(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	counter, err := provider.Meter("test").Int64Counter("assertion_failed_total")
	require.NoError(t, err)

	a, _ := newObservedAsserter(t)
	a = a.WithCounter(counter)

	_ = a.That(context.Background(), false, "first")
	_ = a.Never(context.Background(), "second")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	assert.Equal(t, int64(2), total)
}
