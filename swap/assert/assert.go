package assert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/LerianStudio/lib-swap/swap/log"
)

// ErrAssertionFailed is the sentinel error for failed assertions.
var ErrAssertionFailed = errors.New("assertion failed")

// SpanEventName is the event recorded on the active span when an
// assertion fails.
const SpanEventName = "assertion.failed"

// AssertionError is a failed internal invariant. It never describes a ledger
// rejection; seeing one means the orchestrator computed something impossible.
type AssertionError struct {
	Assertion string
	Message   string
	Component string
	Details   string
}

// Error returns the formatted assertion failure message.
func (e *AssertionError) Error() string {
	if e == nil {
		return ErrAssertionFailed.Error()
	}

	if e.Details == "" {
		return "assertion failed: " + e.Message
	}

	return "assertion failed: " + e.Message + " [" + e.Details + "]"
}

// Unwrap returns the sentinel assertion error for errors.Is.
func (e *AssertionError) Unwrap() error {
	return ErrAssertionFailed
}

// Asserter evaluates invariants and reports failures to logs, the active
// span and, when configured, a failure counter.
type Asserter struct {
	logger    log.Logger
	component string
	failures  metric.Int64Counter
}

// New creates an Asserter labelled with component. A nil logger discards.
func New(logger log.Logger, component string) *Asserter {
	return &Asserter{logger: log.OrNop(logger), component: component}
}

// WithCounter returns a copy of the asserter that also increments counter
// on every failure.
func (a *Asserter) WithCounter(counter metric.Int64Counter) *Asserter {
	clone := *a
	clone.failures = counter

	return &clone
}

// That returns an error if ok is false.
//
//	if err := asserter.That(ctx, fee <= gross, "fee exceeds gross", "fee", fee, "gross", gross); err != nil {
//		return err
//	}
func (a *Asserter) That(ctx context.Context, ok bool, msg string, kv ...any) error {
	if ok {
		return nil
	}

	return a.fail(ctx, "That", msg, kv...)
}

// NotEmpty returns an error if s is empty.
func (a *Asserter) NotEmpty(ctx context.Context, s, msg string, kv ...any) error {
	if s != "" {
		return nil
	}

	return a.fail(ctx, "NotEmpty", msg, kv...)
}

// Never always returns an error. Use for unreachable code paths.
func (a *Asserter) Never(ctx context.Context, msg string, kv ...any) error {
	return a.fail(ctx, "Never", msg, kv...)
}

const maxValueLength = 200

func truncateValue(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) <= maxValueLength {
		return s
	}

	return s[:maxValueLength] + "... (truncated " + strconv.Itoa(len(s)-maxValueLength) + " chars)"
}

func (a *Asserter) fail(ctx context.Context, assertion, msg string, kv ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	details := formatPairs(kv)

	logger, component := log.NewNop(), ""
	if a != nil {
		logger, component = a.logger, a.component
	}

	fields := []log.Field{
		log.String("assertion", assertion),
		log.String("component", component),
	}
	if details != "" {
		fields = append(fields, log.String("details", details))
	}

	logger.Log(ctx, log.LevelError, "ASSERTION FAILED: "+msg, fields...)

	if a != nil && a.failures != nil {
		a.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("component", component),
			attribute.String("assertion", assertion),
		))
	}

	recordToSpan(ctx, assertion, msg, component)

	return &AssertionError{
		Assertion: assertion,
		Message:   msg,
		Component: component,
		Details:   details,
	}
}

func formatPairs(kv []any) string {
	if len(kv) == 0 {
		return ""
	}

	var sb strings.Builder

	for i := 0; i < len(kv); i += 2 {
		if i > 0 {
			sb.WriteString(" ")
		}

		var value any = "MISSING_VALUE"
		if i+1 < len(kv) {
			value = kv[i+1]
		}

		fmt.Fprintf(&sb, "%v=%s", kv[i], truncateValue(value))
	}

	return sb.String()
}

func recordToSpan(ctx context.Context, assertion, message, component string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("assertion.name", assertion),
		attribute.String("assertion.message", message),
	}

	if component != "" {
		attrs = append(attrs, attribute.String("assertion.component", component))
	}

	span.AddEvent(SpanEventName, trace.WithAttributes(attrs...))
	span.RecordError(fmt.Errorf("%w: %s", ErrAssertionFailed, message))

	if component != "" {
		span.SetStatus(codes.Error, "assertion failed in "+component)
	} else {
		span.SetStatus(codes.Error, "assertion failed")
	}
}
