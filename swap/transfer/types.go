package transfer

import (
	"context"

	"github.com/google/uuid"

	"github.com/LerianStudio/lib-swap/swap/account"
	"github.com/LerianStudio/lib-swap/swap/fee"
)

// Environment discards every ledger mutation made inside fn when fn returns
// an error.
type Environment interface {
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}

// Mode names how a swap achieved all-or-nothing semantics.
type Mode string

const (
	ModeAtomic Mode = "atomic"
	ModeSaga   Mode = "saga"
)

// Intent is the fee split computed for one invocation.
type Intent struct {
	Gross uint64   `json:"gross" yaml:"gross"`
	Rate  fee.Rate `json:"rate" yaml:"rate"`
	Fee   uint64   `json:"fee" yaml:"fee"`
	Net   uint64   `json:"net" yaml:"net"`
}

// Receipt describes a committed swap.
type Receipt struct {
	ID             uuid.UUID   `json:"id" yaml:"id"`
	Accounts       account.Set `json:"accounts" yaml:"accounts"`
	Intent         Intent      `json:"intent" yaml:"intent"`
	FeeTransferred bool        `json:"feeTransferred" yaml:"feeTransferred"`
	Mode           Mode        `json:"mode" yaml:"mode"`
}
