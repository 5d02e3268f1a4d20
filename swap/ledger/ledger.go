package ledger

import "context"

// FungibleTransfer asks a fungible ledger to move Amount from From to To.
//
// Authority is the account whose permission the debit runs under; Signers
// are the accounts that signed the request.
type FungibleTransfer struct {
	LedgerID  string
	From      string
	To        string
	Authority string
	Signers   []string
	Amount    uint64
}

// UnitTransfer asks a non-fungible ledger to move Units from From to To.
// Swaps always move exactly one unit.
type UnitTransfer struct {
	LedgerID string
	From     string
	To       string
	Signers  []string
	Units    uint64
}

// FungibleLedger is the fungible-token authority the orchestrator calls.
//
// Transfer must either debit From and credit To by exactly Amount, or fail
// with no effect. Implementations define their own error values; callers
// propagate them unchanged.
type FungibleLedger interface {
	BalanceOf(ctx context.Context, ledgerID, address string) (uint64, error)
	Transfer(ctx context.Context, req FungibleTransfer) error
}

// NonFungibleLedger is the non-fungible-unit authority the orchestrator calls.
//
// Transfer must either move ownership of the requested units or fail with no
// effect.
type NonFungibleLedger interface {
	Transfer(ctx context.Context, req UnitTransfer) error
}
