package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LerianStudio/lib-swap/swap/log"
	"github.com/LerianStudio/lib-swap/swap/metrics"
)

// compensate reverses legs, given in forward order, from last to first.
// Every leg is attempted even after one fails; the first exhausted leg is
// returned along with the joined failures. Caller cancellation is ignored.
func (o *Orchestrator) compensate(ctx context.Context, logger log.Logger, id uuid.UUID, legs []leg) (Leg, error) {
	ctx = context.WithoutCancel(ctx)

	var (
		first Leg
		errs  []error
	)

	for i := len(legs) - 1; i >= 0; i-- {
		l := legs[i]

		if err := o.compensateLeg(ctx, logger, id, l); err != nil {
			if first == "" {
				first = l.name
			}

			errs = append(errs, fmt.Errorf("%s: %w", l.name, err))
		}
	}

	return first, errors.Join(errs...)
}

func (o *Orchestrator) compensateLeg(ctx context.Context, logger log.Logger, id uuid.UUID, l leg) error {
	ctx, span := o.tracer.Start(ctx, "swap.compensate."+l.name.String(),
		trace.WithAttributes(attribute.String("swap.leg.amount", fmt.Sprint(l.amount))))
	defer span.End()

	if l.reverse == nil {
		o.metrics.Compensation(ctx, l.name.String(), metrics.ResultSkipped)
		o.markCompensated(ctx, logger, id, l)

		return nil
	}

	err := o.retry(ctx, o.cfg.CompensationAttempts, o.cfg.CompensationBaseDelay, func(ctx context.Context) error {
		err := o.guard.Call(ctx, "ledger.compensate."+l.name.String(), l.reverse)
		if err != nil {
			logger.Log(ctx, log.LevelWarn, "compensation attempt failed",
				log.String("leg", l.name.String()), log.Err(err))
		}

		return err
	})
	if err != nil {
		o.metrics.Compensation(ctx, l.name.String(), metrics.ResultFailed)
		handleSpanError(span, "compensation exhausted", err)

		return err
	}

	o.metrics.Compensation(ctx, l.name.String(), metrics.ResultSucceeded)
	o.markCompensated(ctx, logger, id, l)
	span.SetStatus(codes.Ok, "")

	logger.Log(ctx, log.LevelWarn, "leg compensated",
		log.String("leg", l.name.String()), log.Uint64("amount", l.amount))

	return nil
}

// markCompensated failures are logged only: the ledger reversal already
// happened and must not be repeated.
func (o *Orchestrator) markCompensated(ctx context.Context, logger log.Logger, id uuid.UUID, l leg) {
	if o.journal == nil {
		return
	}

	if err := o.journal.MarkCompensated(ctx, id, l.name.String()); err != nil {
		logger.Log(ctx, log.LevelError, "failed to journal compensated leg",
			log.String("leg", l.name.String()), log.Err(err))
	}
}

func handleSpanError(span trace.Span, message string, err error) {
	if span == nil || err == nil {
		return
	}

	span.SetStatus(codes.Error, message+": "+err.Error())
	span.RecordError(err)
}
