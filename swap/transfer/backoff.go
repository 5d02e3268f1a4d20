package transfer

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

const maxShift = 62

// exponential returns base * 2^attempt, saturating instead of overflowing.
func exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}

	multiplier := int64(1 << attempt)

	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}

	return base * time.Duration(multiplier)
}

// fullJitter returns a random duration in [0, delay).
func fullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(int64(delay))) // #nosec G404 -- retry jitter
}

// retry calls fn up to attempts times, pausing base*2^n with full jitter
// between calls. It stops early when ctx is done.
func (o *Orchestrator) retry(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	var err error

	for attempt := range attempts {
		if attempt > 0 {
			o.sleep(fullJitter(exponential(base, attempt-1)))
		}

		if err = fn(ctx); err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return err
		}
	}

	return err
}
