package transfer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LerianStudio/lib-swap/swap/fee"
	"github.com/LerianStudio/lib-swap/swap/journal"
	"github.com/LerianStudio/lib-swap/swap/log"
)

// Recover reconciles journal entries that never reached a clean final
// status: PENDING entries idle for longer than Config.RecoveryGrace, and
// every COMPENSATION_FAILED entry.
//
// An entry whose in-flight leg has no recorded outcome is never settled
// here: it is moved to COMPENSATION_FAILED and reported with
// ErrNeedsReconciliation on every pass. Otherwise, saga entries have their
// applied but uncompensated legs reversed, and entries whose legs all
// applied are marked COMMITTED. Atomic entries are COMMITTED when any leg
// was journaled, since legs are journaled only after the environment
// commits, and ABORTED when none was. It returns how many entries reached a
// final status.
func (o *Orchestrator) Recover(ctx context.Context) (int, error) {
	if o.journal == nil {
		return 0, ErrNoJournal
	}

	ctx, span := o.tracer.Start(ctx, "swap.recover")
	defer span.End()

	pending, err := o.journal.ListByStatus(ctx, journal.StatusPending, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: list pending: %w", ErrJournal, err)
	}

	failed, err := o.journal.ListByStatus(ctx, journal.StatusCompensationFailed, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: list compensation failed: %w", ErrJournal, err)
	}

	cutoff := o.now().Add(-o.cfg.RecoveryGrace)

	var (
		recovered int
		errs      []error
	)

	for _, entry := range append(pending, failed...) {
		if entry.Status == journal.StatusPending && entry.UpdatedAt.After(cutoff) {
			continue
		}

		if err := ctx.Err(); err != nil {
			errs = append(errs, err)

			break
		}

		ok, err := o.recoverEntry(ctx, entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", entry.ID, err))
		}

		if ok {
			recovered++
		}
	}

	span.SetAttributes(attribute.Int("swap.recovered", recovered))

	err = errors.Join(errs...)
	if err != nil {
		handleSpanError(span, "recovery incomplete", err)
	}

	return recovered, err
}

func (o *Orchestrator) recoverEntry(ctx context.Context, entry *journal.Entry) (bool, error) {
	var recovered bool

	run := func(ctx context.Context) error {
		var err error

		recovered, err = o.reconcile(ctx, entry)

		return err
	}

	if o.locker != nil {
		err := o.locker.WithLock(ctx, entry.Accounts.LockKeys(), run)

		return recovered, err
	}

	err := run(ctx)

	return recovered, err
}

func (o *Orchestrator) reconcile(ctx context.Context, entry *journal.Entry) (bool, error) {
	logger := o.logger.With(
		log.String("swap_id", entry.ID.String()),
		log.String("status", entry.Status.String()),
	)

	intent := Intent{Gross: entry.Gross, Rate: fee.Rate(entry.Rate), Fee: entry.Fee, Net: entry.Net}
	legs := o.plan(entry.Accounts, intent)

	if leg := entry.Unconfirmed(); leg != "" {
		return false, o.flagUnconfirmed(ctx, logger, entry, leg)
	}

	if Mode(entry.Mode) == ModeAtomic {
		if len(entry.Applied) > 0 {
			return o.settle(ctx, logger, entry, journal.StatusCommitted, "")
		}

		return o.settle(ctx, logger, entry, journal.StatusAborted, "abandoned before the environment reported an outcome")
	}

	if entry.Status == journal.StatusPending && len(entry.Applied) == len(legs) {
		return o.settle(ctx, logger, entry, journal.StatusCommitted, "")
	}

	outstanding := entry.Outstanding()
	reverse := make([]leg, 0, len(outstanding))

	for _, l := range legs {
		if slices.Contains(outstanding, l.name.String()) {
			reverse = append(reverse, l)
		}
	}

	if len(reverse) == 0 {
		if entry.Status == journal.StatusPending && len(entry.Applied) == 0 {
			return o.settle(ctx, logger, entry, journal.StatusAborted, "abandoned before any leg applied")
		}

		return o.settle(ctx, logger, entry, journal.StatusCompensated, "")
	}

	logger.Log(ctx, log.LevelWarn, "recovering swap", log.Int("legs", len(reverse)))

	failedLeg, err := o.compensate(ctx, logger, entry.ID, reverse)
	if err != nil {
		if ferr := o.journal.Finish(ctx, entry.ID, journal.StatusCompensationFailed, failedLeg.String(), err.Error()); ferr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %w", ErrJournal, ferr))
		}

		logger.Log(ctx, log.LevelError, "recovery compensation exhausted", log.Err(err))

		return false, err
	}

	return o.settle(ctx, logger, entry, journal.StatusCompensated, "")
}

// flagUnconfirmed parks an entry whose in-flight leg may or may not have
// reached its ledger. Reversing the recorded legs around it could leave the
// ledgers worse off, so nothing is compensated.
func (o *Orchestrator) flagUnconfirmed(ctx context.Context, logger log.Logger, entry *journal.Entry, leg string) error {
	err := fmt.Errorf("%w: %s was in flight with no recorded outcome", ErrNeedsReconciliation, leg)

	if entry.Status == journal.StatusPending {
		if ferr := o.journal.Finish(ctx, entry.ID, journal.StatusCompensationFailed, "", err.Error()); ferr != nil {
			err = errors.Join(err, fmt.Errorf("%w: finish: %w", ErrJournal, ferr))
		}
	}

	logger.Log(ctx, log.LevelError, "swap needs manual reconciliation", log.String("leg", leg), log.Err(err))

	return err
}

func (o *Orchestrator) settle(ctx context.Context, logger log.Logger, entry *journal.Entry, status journal.Status, note string) (bool, error) {
	if err := o.journal.Finish(ctx, entry.ID, status, "", note); err != nil {
		return false, fmt.Errorf("%w: finish: %w", ErrJournal, err)
	}

	logger.Log(ctx, log.LevelInfo, "swap recovered", log.String("final_status", status.String()))

	return true, nil
}
