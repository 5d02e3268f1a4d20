package transfer

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/LerianStudio/lib-swap/swap/journal"
	"github.com/LerianStudio/lib-swap/swap/lock"
	"github.com/LerianStudio/lib-swap/swap/log"
	"github.com/LerianStudio/lib-swap/swap/metrics"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEnvironment runs every invocation inside env.Atomically instead of
// compensating failed swaps.
func WithEnvironment(env Environment) Option {
	return func(o *Orchestrator) {
		o.env = env
	}
}

// WithJournal records progress in j.
func WithJournal(j journal.Journal) Option {
	return func(o *Orchestrator) {
		o.journal = j
	}
}

// WithLocker serializes invocations that share an account.
func WithLocker(l lock.Locker) Option {
	return func(o *Orchestrator) {
		o.locker = l
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = log.OrNop(logger)
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// withSleep replaces the backoff sleep; tests use it to avoid real delays.
func withSleep(sleep func(time.Duration)) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// withClock replaces time.Now.
func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}
