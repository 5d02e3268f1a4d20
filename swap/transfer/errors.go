package transfer

import (
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-swap/swap/account"
	"github.com/LerianStudio/lib-swap/swap/internal/recovery"
)

var (
	// ErrInvalidArgument is returned when the configured fee rate exceeds 100.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAccountMissing is returned when fewer than five handles are supplied.
	ErrAccountMissing = account.ErrAccountMissing
	// ErrNilLedger is returned by New when a ledger client is missing.
	ErrNilLedger = errors.New("ledger client is required")
	// ErrNoJournal is returned by Recover on an orchestrator without a journal.
	ErrNoJournal = errors.New("recovery requires a journal")
	// ErrLedgerPanic is wrapped when a ledger client panics. The panic is
	// treated as a failure of the leg that made the call.
	ErrLedgerPanic = recovery.ErrPanicRecovered
	// ErrJournal tags failures of the journal itself, as opposed to the ledgers.
	ErrJournal = errors.New("journal")
	// ErrNeedsReconciliation is returned by Recover for entries whose in-flight
	// leg may have reached its ledger without being recorded. Such entries are
	// left COMPENSATION_FAILED for an operator.
	ErrNeedsReconciliation = errors.New("swap needs manual reconciliation")
)

// Leg names one step of a swap.
type Leg string

const (
	// LegBalance is the read of the source balance that fixes the gross.
	LegBalance Leg = "balance-read"
	LegNet     Leg = "net-transfer"
	LegUnit    Leg = "unit-transfer"
	LegFee     Leg = "fee-transfer"
)

func (l Leg) String() string {
	return string(l)
}

// LegError tags a ledger failure with the leg that produced it. Err is the
// ledger's error value, unchanged.
type LegError struct {
	Leg Leg
	Err error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("%s: %v", e.Leg, e.Err)
}

func (e *LegError) Unwrap() error {
	return e.Err
}

// FailedLeg reports which leg err is tagged with, if any.
func FailedLeg(err error) (Leg, bool) {
	var legErr *LegError
	if errors.As(err, &legErr) {
		return legErr.Leg, true
	}

	return "", false
}

// CompensationError means a forward leg failed and at least one completed
// leg could not be reversed. Ledger state is inconsistent until Recover
// succeeds for the swap.
type CompensationError struct {
	// Leg is the first leg whose reversal was exhausted.
	Leg Leg
	// Cause is the failure that triggered compensation.
	Cause error
	// Err holds the compensation failures.
	Err error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensating %s failed: %v (after: %v)", e.Leg, e.Err, e.Cause)
}

func (e *CompensationError) Unwrap() []error {
	return []error{e.Cause, e.Err}
}
