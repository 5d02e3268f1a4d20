package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/LerianStudio/lib-swap/swap/account"
	"github.com/LerianStudio/lib-swap/swap/assert"
	"github.com/LerianStudio/lib-swap/swap/fee"
	"github.com/LerianStudio/lib-swap/swap/internal/nilcheck"
	"github.com/LerianStudio/lib-swap/swap/internal/recovery"
	"github.com/LerianStudio/lib-swap/swap/journal"
	"github.com/LerianStudio/lib-swap/swap/ledger"
	"github.com/LerianStudio/lib-swap/swap/lock"
	"github.com/LerianStudio/lib-swap/swap/log"
	"github.com/LerianStudio/lib-swap/swap/metrics"
)

const instrumentationName = "github.com/LerianStudio/lib-swap/swap/transfer"

// Orchestrator executes swaps. It holds no per-invocation state and is safe
// for concurrent use.
type Orchestrator struct {
	cfg      Config
	fungible ledger.FungibleLedger
	units    ledger.NonFungibleLedger

	env      Environment
	journal  journal.Journal
	locker   lock.Locker
	logger   log.Logger
	metrics  *metrics.Recorder
	tracer   trace.Tracer
	asserter *assert.Asserter
	guard    *recovery.Guard

	sleep func(time.Duration)
	now   func() time.Time
}

// New builds an orchestrator over the two ledgers. Without WithEnvironment
// failed swaps are unwound by compensating transfers.
func New(cfg Config, fungible ledger.FungibleLedger, units ledger.NonFungibleLedger, opts ...Option) (*Orchestrator, error) {
	if nilcheck.Interface(fungible) {
		return nil, fmt.Errorf("%w: fungible", ErrNilLedger)
	}

	if nilcheck.Interface(units) {
		return nil, fmt.Errorf("%w: non-fungible", ErrNilLedger)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:      cfg,
		fungible: fungible,
		units:    units,
		logger:   log.NewNop(),
		metrics:  metrics.NewNopRecorder(),
		tracer:   otel.Tracer(instrumentationName),
		sleep:    time.Sleep,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	if nilcheck.Interface(o.env) {
		o.env = nil
	}

	if nilcheck.Interface(o.journal) {
		o.journal = nil
	}

	if nilcheck.Interface(o.locker) {
		o.locker = nil
	}

	o.asserter = assert.New(o.logger, "transfer").WithCounter(o.metrics.AssertionCounter())
	o.guard = recovery.New(o.logger, o.metrics.PanicCounter())

	return o, nil
}

// Config returns the configuration the orchestrator was built with.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Mode reports how failed swaps are unwound.
func (o *Orchestrator) Mode() Mode {
	if o.env != nil {
		return ModeAtomic
	}

	return ModeSaga
}

// Execute swaps the source's whole fungible balance, minus the fee, and one
// unit between two parties. handles are consumed in order: source fungible,
// destination fungible, source unit, destination unit, fee sink.
//
// Ledger failures come back as *LegError wrapping the ledger's error, or as
// *CompensationError when a completed leg could not be reversed.
func (o *Orchestrator) Execute(ctx context.Context, handles []account.Handle) (Receipt, error) {
	start := o.now()

	ctx, span := o.tracer.Start(ctx, "swap.execute",
		trace.WithAttributes(attribute.String("swap.mode", string(o.Mode()))))
	defer span.End()

	resolver := account.NewResolver(handles)

	accounts, err := account.ResolveSet(resolver)
	if err != nil {
		return Receipt{}, o.reject(ctx, span, start, "failed to resolve accounts", err)
	}

	if extra := resolver.Remaining(); extra > 0 {
		o.logger.Log(ctx, log.LevelDebug, "ignoring extra account handles", log.Int("extra", extra))
	}

	rate := o.cfg.FeeRate
	if err := rate.Validate(); err != nil {
		return Receipt{}, o.reject(ctx, span, start, "fee rate rejected", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}

	var (
		receipt Receipt
		outcome string
	)

	run := func(ctx context.Context) error {
		var err error

		receipt, outcome, err = o.execute(ctx, accounts, rate)

		return err
	}

	if o.locker != nil {
		err = o.locker.WithLock(ctx, accounts.LockKeys(), run)
	} else {
		err = run(ctx)
	}

	if outcome == "" {
		return Receipt{}, o.reject(ctx, span, start, "failed to lock accounts", err)
	}

	o.metrics.Execution(ctx, outcome, o.now().Sub(start))
	span.SetAttributes(attribute.String("swap.outcome", outcome))

	if err != nil {
		handleSpanError(span, "swap failed", err)

		return Receipt{}, err
	}

	return receipt, nil
}

func (o *Orchestrator) reject(ctx context.Context, span trace.Span, start time.Time, msg string, err error) error {
	o.logger.Log(ctx, log.LevelWarn, "swap rejected: "+msg, log.Err(err))
	o.metrics.Execution(ctx, metrics.OutcomeRejected, o.now().Sub(start))
	span.SetAttributes(attribute.String("swap.outcome", metrics.OutcomeRejected))
	handleSpanError(span, msg, err)

	return err
}

// execute runs with the accounts locked, when a locker is configured.
func (o *Orchestrator) execute(ctx context.Context, accounts account.Set, rate fee.Rate) (Receipt, string, error) {
	src := accounts.SourceFungible

	var gross uint64

	err := o.guard.Call(ctx, "ledger."+LegBalance.String(), func(ctx context.Context) error {
		var err error

		gross, err = o.fungible.BalanceOf(ctx, src.LedgerID, src.Address)

		return err
	})
	if err != nil {
		o.metrics.LegFailure(ctx, LegBalance.String())

		return Receipt{}, metrics.OutcomeAborted, &LegError{Leg: LegBalance, Err: err}
	}

	intent, err := o.split(ctx, gross, rate)
	if err != nil {
		return Receipt{}, metrics.OutcomeAborted, err
	}

	entry := journal.NewEntry(accounts, intent.Gross, uint64(intent.Rate), intent.Fee, intent.Net)
	entry.Mode = string(o.Mode())

	logger := o.logger.With(log.String("swap_id", entry.ID.String()))

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("swap.id", entry.ID.String()),
		attribute.String("swap.gross", fmt.Sprint(intent.Gross)),
		attribute.String("swap.fee", fmt.Sprint(intent.Fee)),
		attribute.String("swap.net", fmt.Sprint(intent.Net)),
	)

	if o.journal != nil {
		if err := o.journal.Begin(ctx, entry); err != nil {
			return Receipt{}, metrics.OutcomeAborted, fmt.Errorf("%w: begin %s: %w", ErrJournal, entry.ID, err)
		}
	}

	legs := o.plan(accounts, intent)

	var (
		outcome = metrics.OutcomeCommitted
		failure error
	)

	if o.env != nil {
		if failure = o.runAtomic(ctx, logger, entry.ID, legs); failure != nil {
			outcome = metrics.OutcomeAborted
		}
	} else {
		outcome, failure = o.runSaga(ctx, logger, entry.ID, legs)
	}

	o.finish(ctx, logger, entry.ID, outcome, failure)

	if failure != nil {
		return Receipt{}, outcome, failure
	}

	o.metrics.FeeWithheld(ctx, intent.Fee)

	logger.Log(ctx, log.LevelInfo, "swap committed",
		log.Uint64("gross", intent.Gross),
		log.Uint64("fee", intent.Fee),
		log.Uint64("net", intent.Net),
		log.String("mode", string(o.Mode())),
	)

	return Receipt{
		ID:             entry.ID,
		Accounts:       accounts,
		Intent:         intent,
		FeeTransferred: intent.Fee > 0,
		Mode:           o.Mode(),
	}, metrics.OutcomeCommitted, nil
}

// split computes the fee and net amounts of gross.
func (o *Orchestrator) split(ctx context.Context, gross uint64, rate fee.Rate) (Intent, error) {
	taxed := min(fee.Compute(gross, rate), gross)
	net := gross - taxed

	err := o.asserter.That(ctx, taxed <= gross && net+taxed == gross,
		"fee split must conserve the gross amount",
		"gross", gross, "fee", taxed, "net", net)
	if err != nil {
		return Intent{}, err
	}

	return Intent{Gross: gross, Rate: rate, Fee: taxed, Net: net}, nil
}

// leg is one planned ledger call and its inverse. A nil reverse means there
// is nothing to undo.
type leg struct {
	name    Leg
	amount  uint64
	forward func(context.Context) error
	reverse func(context.Context) error
}

// plan lists the legs in execution order. Fungible legs run on the source's
// ledger and unit legs on the source unit's ledger.
func (o *Orchestrator) plan(accounts account.Set, intent Intent) []leg {
	src, dst := accounts.SourceFungible, accounts.DestFungible
	srcUnit, dstUnit := accounts.SourceUnit, accounts.DestUnit
	sink := accounts.FeeSink

	net := leg{
		name:    LegNet,
		amount:  intent.Net,
		forward: o.fungibleTransfer(src.LedgerID, src.Address, dst.Address, intent.Net),
		reverse: o.fungibleTransfer(src.LedgerID, dst.Address, src.Address, intent.Net),
	}
	if intent.Net == 0 {
		net.reverse = nil
	}

	legs := []leg{
		net,
		{
			name:    LegUnit,
			amount:  1,
			forward: o.unitTransfer(srcUnit.LedgerID, srcUnit.Address, dstUnit.Address),
			reverse: o.unitTransfer(srcUnit.LedgerID, dstUnit.Address, srcUnit.Address),
		},
	}

	if intent.Fee > 0 {
		legs = append(legs, leg{
			name:    LegFee,
			amount:  intent.Fee,
			forward: o.fungibleTransfer(src.LedgerID, src.Address, sink.Address, intent.Fee),
			reverse: o.fungibleTransfer(src.LedgerID, sink.Address, src.Address, intent.Fee),
		})
	}

	return legs
}

func (o *Orchestrator) fungibleTransfer(ledgerID, from, to string, amount uint64) func(context.Context) error {
	return func(ctx context.Context) error {
		return o.fungible.Transfer(ctx, ledger.FungibleTransfer{
			LedgerID:  ledgerID,
			From:      from,
			To:        to,
			Authority: from,
			Signers:   []string{from},
			Amount:    amount,
		})
	}
}

func (o *Orchestrator) unitTransfer(ledgerID, from, to string) func(context.Context) error {
	return func(ctx context.Context) error {
		return o.units.Transfer(ctx, ledger.UnitTransfer{
			LedgerID: ledgerID,
			From:     from,
			To:       to,
			Signers:  []string{from},
			Units:    1,
		})
	}
}

func (o *Orchestrator) runLeg(ctx context.Context, logger log.Logger, l leg) error {
	ctx, span := o.tracer.Start(ctx, "swap.leg."+l.name.String(),
		trace.WithAttributes(attribute.String("swap.leg.amount", fmt.Sprint(l.amount))))
	defer span.End()

	logger.Log(ctx, log.LevelDebug, "executing leg", log.String("leg", l.name.String()), log.Uint64("amount", l.amount))

	if err := o.guard.Call(ctx, "ledger."+l.name.String(), l.forward); err != nil {
		o.metrics.LegFailure(ctx, l.name.String())
		handleSpanError(span, "leg failed", err)
		logger.Log(ctx, log.LevelWarn, "leg failed", log.String("leg", l.name.String()), log.Err(err))

		return &LegError{Leg: l.name, Err: err}
	}

	return nil
}

// runAtomic issues every leg inside the environment. The first leg is
// journaled in flight for the whole attempt; applied legs are journaled only
// after the environment commits, since a discarded attempt leaves nothing to
// reverse.
func (o *Orchestrator) runAtomic(ctx context.Context, logger log.Logger, id uuid.UUID, legs []leg) error {
	if o.journal != nil {
		if err := o.journal.MarkAttempting(ctx, id, legs[0].name.String()); err != nil {
			return fmt.Errorf("%w: mark %s in flight: %w", ErrJournal, legs[0].name, err)
		}
	}

	err := o.env.Atomically(ctx, func(ctx context.Context) error {
		for _, l := range legs {
			if err := o.runLeg(ctx, logger, l); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if o.journal != nil {
		for _, l := range legs {
			if err := o.journal.MarkApplied(ctx, id, l.name.String()); err != nil {
				logger.Log(ctx, log.LevelError, "failed to journal applied leg", log.String("leg", l.name.String()), log.Err(err))
			}
		}
	}

	return nil
}

// runSaga issues legs in order and unwinds the completed ones on failure.
// Each leg is journaled in flight before its ledger call and applied after
// it.
func (o *Orchestrator) runSaga(ctx context.Context, logger log.Logger, id uuid.UUID, legs []leg) (string, error) {
	applied := make([]leg, 0, len(legs))

	for _, l := range legs {
		if o.journal != nil {
			if err := o.journal.MarkAttempting(ctx, id, l.name.String()); err != nil {
				cause := fmt.Errorf("%w: mark %s in flight: %w", ErrJournal, l.name, err)

				return o.unwind(ctx, logger, id, cause, applied)
			}
		}

		if err := o.runLeg(ctx, logger, l); err != nil {
			return o.unwind(ctx, logger, id, err, applied)
		}

		applied = append(applied, l)

		if o.journal != nil {
			if err := o.journal.MarkApplied(ctx, id, l.name.String()); err != nil {
				cause := fmt.Errorf("%w: mark %s applied: %w", ErrJournal, l.name, err)

				return o.unwind(ctx, logger, id, cause, applied)
			}
		}
	}

	return metrics.OutcomeCommitted, nil
}

func (o *Orchestrator) unwind(ctx context.Context, logger log.Logger, id uuid.UUID, cause error, applied []leg) (string, error) {
	if len(applied) == 0 {
		return metrics.OutcomeAborted, cause
	}

	logger.Log(ctx, log.LevelWarn, "swap failed, compensating completed legs",
		log.Int("legs", len(applied)), log.Err(cause))

	failedLeg, err := o.compensate(ctx, logger, id, applied)
	if err != nil {
		logger.Log(ctx, log.LevelError, "compensation exhausted, swap left inconsistent",
			log.String("leg", failedLeg.String()), log.Err(err))

		return metrics.OutcomeCompensationFailed, &CompensationError{Leg: failedLeg, Cause: cause, Err: err}
	}

	return metrics.OutcomeCompensated, cause
}

// finish records the final status. Journal failures are logged, not
// returned: the ledgers already reflect the outcome and Recover reconciles
// entries left PENDING.
func (o *Orchestrator) finish(ctx context.Context, logger log.Logger, id uuid.UUID, outcome string, failure error) {
	if o.journal == nil {
		return
	}

	var failedLeg, lastErr string

	if failure != nil {
		lastErr = failure.Error()

		if l, ok := FailedLeg(failure); ok {
			failedLeg = l.String()
		}

		if errors.Is(failure, ErrJournal) && failedLeg == "" {
			failedLeg = "journal"
		}
	}

	if err := o.journal.Finish(ctx, id, statusFor(outcome), failedLeg, lastErr); err != nil {
		logger.Log(ctx, log.LevelError, "failed to finish journal entry",
			log.String("outcome", outcome), log.Err(err))
	}
}

func statusFor(outcome string) journal.Status {
	switch outcome {
	case metrics.OutcomeCommitted:
		return journal.StatusCommitted
	case metrics.OutcomeCompensated:
		return journal.StatusCompensated
	case metrics.OutcomeCompensationFailed:
		return journal.StatusCompensationFailed
	default:
		return journal.StatusAborted
	}
}
