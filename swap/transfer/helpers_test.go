package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/lib-swap/swap/account"
	"github.com/LerianStudio/lib-swap/swap/fee"
	"github.com/LerianStudio/lib-swap/swap/ledger"
	"github.com/LerianStudio/lib-swap/swap/ledger/memledger"
)

var errLedgerDown = errors.New("ledger unavailable")

const (
	usd = "usd"
	art = "art"
)

// recordingFungible forwards to a memledger view, recording every call.
// fail, when set, can reject a request before it reaches the store.
type recordingFungible struct {
	next ledger.FungibleLedger

	mu           sync.Mutex
	balanceCalls int
	balanceErr   error
	transfers    []ledger.FungibleTransfer
	fail         func(ctx context.Context, req ledger.FungibleTransfer) error
}

func (r *recordingFungible) BalanceOf(ctx context.Context, ledgerID, address string) (uint64, error) {
	r.mu.Lock()
	r.balanceCalls++
	balanceErr := r.balanceErr
	r.mu.Unlock()

	if balanceErr != nil {
		return 0, balanceErr
	}

	return r.next.BalanceOf(ctx, ledgerID, address)
}

func (r *recordingFungible) Transfer(ctx context.Context, req ledger.FungibleTransfer) error {
	r.mu.Lock()
	r.transfers = append(r.transfers, req)
	fail := r.fail
	r.mu.Unlock()

	if fail != nil {
		if err := fail(ctx, req); err != nil {
			return err
		}
	}

	return r.next.Transfer(ctx, req)
}

func (r *recordingFungible) setFail(fail func(context.Context, ledger.FungibleTransfer) error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fail = fail
}

func (r *recordingFungible) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.balanceCalls + len(r.transfers)
}

func (r *recordingFungible) transfersTo(address string) []ledger.FungibleTransfer {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ledger.FungibleTransfer

	for _, t := range r.transfers {
		if t.To == address {
			out = append(out, t)
		}
	}

	return out
}

type recordingUnits struct {
	next ledger.NonFungibleLedger

	mu        sync.Mutex
	transfers []ledger.UnitTransfer
	fail      func(ctx context.Context, req ledger.UnitTransfer) error
}

func (r *recordingUnits) Transfer(ctx context.Context, req ledger.UnitTransfer) error {
	r.mu.Lock()
	r.transfers = append(r.transfers, req)
	fail := r.fail
	r.mu.Unlock()

	if fail != nil {
		if err := fail(ctx, req); err != nil {
			return err
		}
	}

	return r.next.Transfer(ctx, req)
}

func (r *recordingUnits) setFail(fail func(context.Context, ledger.UnitTransfer) error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fail = fail
}

func (r *recordingUnits) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.transfers)
}

// fixture is a funded store: alice holds gross usd and one art unit; bob and
// the treasury hold nothing.
type fixture struct {
	store    *memledger.Store
	fungible *recordingFungible
	units    *recordingUnits
	handles  []account.Handle
}

func newFixture(t *testing.T, gross uint64) *fixture {
	t.Helper()

	store := memledger.New()
	store.OpenFungible(usd, "alice", gross)
	store.OpenFungible(usd, "bob", 0)
	store.OpenFungible(usd, "treasury", 0)
	store.OpenUnits(art, "alice", 1)
	store.OpenUnits(art, "bob", 0)

	return &fixture{
		store:    store,
		fungible: &recordingFungible{next: store.Fungible()},
		units:    &recordingUnits{next: store.NonFungible()},
		handles: []account.Handle{
			{LedgerID: usd, Address: "alice"},
			{LedgerID: usd, Address: "bob"},
			{LedgerID: art, Address: "alice"},
			{LedgerID: art, Address: "bob"},
			{LedgerID: usd, Address: "treasury"},
		},
	}
}

func (f *fixture) accounts() account.Set {
	return account.Set{
		SourceFungible: f.handles[0],
		DestFungible:   f.handles[1],
		SourceUnit:     f.handles[2],
		DestUnit:       f.handles[3],
		FeeSink:        f.handles[4],
	}
}

func (f *fixture) ledgerCalls() int {
	return f.fungible.calls() + f.units.calls()
}

func (f *fixture) balance(t *testing.T, address string) uint64 {
	t.Helper()

	b, ok := f.store.Balance(usd, address)
	require.True(t, ok, "no usd account %s", address)

	return b
}

func (f *fixture) unitsOf(t *testing.T, address string) uint64 {
	t.Helper()

	u, ok := f.store.Units(art, address)
	require.True(t, ok, "no art account %s", address)

	return u
}

// newOrchestrator builds an orchestrator over f with instant backoff.
func (f *fixture) newOrchestrator(t *testing.T, cfg Config, opts ...Option) *Orchestrator {
	t.Helper()

	opts = append([]Option{withSleep(func(time.Duration) {})}, opts...)

	o, err := New(cfg, f.fungible, f.units, opts...)
	require.NoError(t, err)

	return o
}

func configWithRate(rate uint64) Config {
	cfg := DefaultConfig()
	cfg.FeeRate = fee.Rate(rate)

	return cfg
}

// modes runs fn once per atomicity mode.
func modes(t *testing.T, fn func(t *testing.T, f *fixture, opts []Option)) {
	t.Helper()

	t.Run("saga", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 100)
		fn(t, f, nil)
	})

	t.Run("atomic", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, 100)
		fn(t, f, []Option{WithEnvironment(f.store)})
	})
}

func failTransfersTo(address string, err error) func(context.Context, ledger.FungibleTransfer) error {
	return func(_ context.Context, req ledger.FungibleTransfer) error {
		if req.To == address {
			return err
		}

		return nil
	}
}

func failAllUnits(err error) func(context.Context, ledger.UnitTransfer) error {
	return func(context.Context, ledger.UnitTransfer) error {
		return err
	}
}
