// Package recovery turns panics raised by ledger clients into errors.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/LerianStudio/lib-swap/swap/log"
)

// ErrPanicRecovered is wrapped by every error produced from a panic.
var ErrPanicRecovered = errors.New("panic recovered")

// Guard runs calls that must not unwind the caller's stack.
type Guard struct {
	logger  log.Logger
	counter metric.Int64Counter
}

// New returns a Guard logging to logger. counter may be nil.
func New(logger log.Logger, counter metric.Int64Counter) *Guard {
	return &Guard{logger: log.OrNop(logger), counter: counter}
}

// Call runs fn. A panic is logged with its stack, counted under component
// and returned as an error wrapping ErrPanicRecovered, and the panic value
// too when it is an error.
func (g *Guard) Call(ctx context.Context, component string, fn func(context.Context) error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}

		g.logger.Log(ctx, log.LevelError, "panic recovered",
			log.String("component", component),
			log.String("panic_value", formatPanicValue(recovered)),
			log.String("stack_trace", string(debug.Stack())),
		)

		if g.counter != nil {
			g.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
		}

		err = toError(component, recovered)
	}()

	return fn(ctx)
}

func toError(component string, value any) error {
	if cause, ok := value.(error); ok {
		return fmt.Errorf("%w in %s: %w", ErrPanicRecovered, component, cause)
	}

	return fmt.Errorf("%w in %s: %s", ErrPanicRecovered, component, formatPanicValue(value))
}

func formatPanicValue(value any) string {
	switch val := value.(type) {
	case nil:
		return "<nil>"
	case string:
		return val
	case error:
		return val.Error()
	default:
		return fmt.Sprintf("%v", value)
	}
}
