package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ErrNilMeter indicates that a nil OTEL meter was provided.
var ErrNilMeter = errors.New("metric meter cannot be nil")

// Metric describes one instrument.
type Metric struct {
	Name        string
	Description string
	Unit        string
	// For histograms: bucket boundaries
	Buckets []float64
}

// Outcome values for MetricExecutions.
const (
	OutcomeCommitted          = "committed"
	OutcomeRejected           = "rejected"
	OutcomeAborted            = "aborted"
	OutcomeCompensated        = "compensated"
	OutcomeCompensationFailed = "compensation_failed"
)

// Result values for MetricCompensations.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

// DefaultLatencyBuckets in seconds.
var DefaultLatencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	MetricExecutions = Metric{
		Name:        "swap_executions_total",
		Unit:        "1",
		Description: "Swap invocations by outcome.",
	}

	MetricLegFailures = Metric{
		Name:        "swap_leg_failures_total",
		Unit:        "1",
		Description: "Forward legs rejected by a ledger.",
	}

	MetricCompensations = Metric{
		Name:        "swap_compensations_total",
		Unit:        "1",
		Description: "Compensating transfers by leg and result.",
	}

	MetricFeeWithheld = Metric{
		Name:        "swap_fee_withheld_units_total",
		Unit:        "{unit}",
		Description: "Fungible units routed to the fee sink.",
	}

	MetricAssertionFailed = Metric{
		Name:        "swap_assertion_failed_total",
		Unit:        "1",
		Description: "Internal invariant violations.",
	}

	MetricPanicsRecovered = Metric{
		Name:        "swap_panics_recovered_total",
		Unit:        "1",
		Description: "Panics raised by ledger clients and turned into errors.",
	}

	MetricExecutionDuration = Metric{
		Name:        "swap_execution_duration_seconds",
		Unit:        "s",
		Description: "Wall time of one swap invocation.",
		Buckets:     DefaultLatencyBuckets,
	}
)

// Recorder records orchestration metrics. The zero value is not usable; use
// NewRecorder or NewNopRecorder.
type Recorder struct {
	executions    metric.Int64Counter
	legFailures   metric.Int64Counter
	compensations metric.Int64Counter
	feeWithheld   metric.Int64Counter
	assertions    metric.Int64Counter
	panics        metric.Int64Counter
	duration      metric.Float64Histogram
}

// NewRecorder creates every instrument on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	r := &Recorder{}

	var err error

	counters := []struct {
		dst *metric.Int64Counter
		def Metric
	}{
		{&r.executions, MetricExecutions},
		{&r.legFailures, MetricLegFailures},
		{&r.compensations, MetricCompensations},
		{&r.feeWithheld, MetricFeeWithheld},
		{&r.assertions, MetricAssertionFailed},
		{&r.panics, MetricPanicsRecovered},
	}

	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.def.Name,
			metric.WithDescription(c.def.Description),
			metric.WithUnit(c.def.Unit),
		)
		if err != nil {
			return nil, fmt.Errorf("creating counter %s: %w", c.def.Name, err)
		}
	}

	r.duration, err = meter.Float64Histogram(MetricExecutionDuration.Name,
		metric.WithDescription(MetricExecutionDuration.Description),
		metric.WithUnit(MetricExecutionDuration.Unit),
		metric.WithExplicitBucketBoundaries(MetricExecutionDuration.Buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("creating histogram %s: %w", MetricExecutionDuration.Name, err)
	}

	return r, nil
}

// NewNopRecorder returns a recorder backed by the OTel no-op meter.
func NewNopRecorder() *Recorder {
	r, err := NewRecorder(noop.NewMeterProvider().Meter("swap"))
	if err != nil {
		// the no-op meter never fails
		panic(err)
	}

	return r
}

// Execution records the end of one invocation.
func (r *Recorder) Execution(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))

	r.executions.Add(ctx, 1, attrs)
	r.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// LegFailure records a forward leg rejected by its ledger.
func (r *Recorder) LegFailure(ctx context.Context, leg string) {
	r.legFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("leg", leg)))
}

// Compensation records the result of reversing one leg.
func (r *Recorder) Compensation(ctx context.Context, leg, result string) {
	r.compensations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("leg", leg),
		attribute.String("result", result),
	))
}

// FeeWithheld adds units routed to the fee sink. Amounts beyond the int64
// range are clamped.
func (r *Recorder) FeeWithheld(ctx context.Context, units uint64) {
	if units == 0 {
		return
	}

	if units > math.MaxInt64 {
		units = math.MaxInt64
	}

	r.feeWithheld.Add(ctx, int64(units))
}

// AssertionCounter exposes the invariant-violation counter for assert.Asserter.
func (r *Recorder) AssertionCounter() metric.Int64Counter {
	return r.assertions
}

// PanicCounter exposes the recovered-panic counter for the recovery guard.
func (r *Recorder) PanicCounter() metric.Int64Counter {
	return r.panics
}
