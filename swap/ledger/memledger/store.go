package memledger

import (
	"context"
	"slices"
	"sync"

	"github.com/LerianStudio/lib-swap/swap/ledger"
)

type accountKey struct {
	ledger  string
	address string
}

func (k accountKey) String() string {
	return k.ledger + ":" + k.address
}

// Store holds fungible balances and unit ownership for any number of ledger
// IDs. It backs both the Fungible and NonFungible views, which lets
// Atomically discard mutations across the two.
//
// The setup and inspection helpers (OpenFungible, Balance, Snapshot, ...)
// do not wait for an Atomically scope and may observe its uncommitted
// mutations.
type Store struct {
	mu sync.Mutex
	// txn admits one ledger call, or one Atomically scope, at a time.
	txn      chan struct{}
	balances map[accountKey]uint64
	units    map[accountKey]uint64
	frozen   map[accountKey]bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		txn:      make(chan struct{}, 1),
		balances: make(map[accountKey]uint64),
		units:    make(map[accountKey]uint64),
		frozen:   make(map[accountKey]bool),
	}
}

// OpenFungible opens (or resets) a fungible account with balance.
func (s *Store) OpenFungible(ledgerID, address string, balance uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[accountKey{ledgerID, address}] = balance
}

// OpenUnits opens (or resets) a unit account holding units.
func (s *Store) OpenUnits(ledgerID, address string, units uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.units[accountKey{ledgerID, address}] = units
}

// Freeze blocks every transfer into or out of the account.
func (s *Store) Freeze(ledgerID, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frozen[accountKey{ledgerID, address}] = true
}

// Balance returns the fungible balance and whether the account exists.
func (s *Store) Balance(ledgerID, address string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[accountKey{ledgerID, address}]

	return balance, ok
}

// Units returns the units held and whether the account exists.
func (s *Store) Units(ledgerID, address string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	units, ok := s.units[accountKey{ledgerID, address}]

	return units, ok
}

// Snapshot is a point-in-time copy of the store, keyed "ledger:address".
type Snapshot struct {
	Balances map[string]uint64 `json:"balances" yaml:"balances"`
	Units    map[string]uint64 `json:"units" yaml:"units"`
}

// Snapshot copies the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Balances: make(map[string]uint64, len(s.balances)),
		Units:    make(map[string]uint64, len(s.units)),
	}

	for k, v := range s.balances {
		snap.Balances[k.String()] = v
	}

	for k, v := range s.units {
		snap.Units[k.String()] = v
	}

	return snap
}

// Fungible returns the fungible-ledger view of the store.
func (s *Store) Fungible() *Fungible {
	return &Fungible{store: s}
}

// NonFungible returns the non-fungible-ledger view of the store.
func (s *Store) NonFungible() *NonFungible {
	return &NonFungible{store: s}
}

// Fungible implements ledger.FungibleLedger over a Store.
type Fungible struct {
	store *Store
}

var _ ledger.FungibleLedger = (*Fungible)(nil)

// BalanceOf reads the current balance.
func (f *Fungible) BalanceOf(ctx context.Context, ledgerID, address string) (uint64, error) {
	release, err := f.store.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	balance, ok := f.store.Balance(ledgerID, address)
	if !ok {
		return 0, NewDomainError(ErrorAccountIneligibility, "address", "account "+ledgerID+":"+address+" not found")
	}

	return balance, nil
}

// Transfer moves req.Amount. The source must be its own authority and signer.
// Zero amounts are accepted as no-op transfers.
func (f *Fungible) Transfer(ctx context.Context, req ledger.FungibleTransfer) error {
	if req.Authority != req.From || !slices.Contains(req.Signers, req.From) {
		return NewDomainError(ErrorAuthorityMismatch, "authority", "source must authorize and sign its own debit")
	}

	s := f.store
	from := accountKey{req.LedgerID, req.From}
	to := accountKey{req.LedgerID, req.To}

	release, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(s.balances, from, "from"); err != nil {
		return err
	}

	if err := s.checkOpen(s.balances, to, "to"); err != nil {
		return err
	}

	if s.balances[from] < req.Amount {
		return NewDomainError(ErrorInsufficientFunds, "amount", "source balance cannot cover the amount")
	}

	if from == to {
		return nil
	}

	if s.balances[to] > ^uint64(0)-req.Amount {
		return NewDomainError(ErrorOverflow, "amount", "credit would overflow destination balance")
	}

	s.move(ctx, s.balances, from, to, req.Amount)

	return nil
}

// NonFungible implements ledger.NonFungibleLedger over a Store.
type NonFungible struct {
	store *Store
}

var _ ledger.NonFungibleLedger = (*NonFungible)(nil)

// Transfer moves req.Units of ownership. The source must sign.
func (n *NonFungible) Transfer(ctx context.Context, req ledger.UnitTransfer) error {
	if req.Units == 0 {
		return NewDomainError(ErrorInvalidInput, "units", "at least one unit must be transferred")
	}

	if !slices.Contains(req.Signers, req.From) {
		return NewDomainError(ErrorAuthorityMismatch, "signers", "unit holder must sign the transfer")
	}

	s := n.store
	from := accountKey{req.LedgerID, req.From}
	to := accountKey{req.LedgerID, req.To}

	release, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(s.units, from, "from"); err != nil {
		return err
	}

	if err := s.checkOpen(s.units, to, "to"); err != nil {
		return err
	}

	if s.units[from] < req.Units {
		return NewDomainError(ErrorOwnershipMismatch, "from", "source does not hold the requested unit")
	}

	if from == to {
		return nil
	}

	s.move(ctx, s.units, from, to, req.Units)

	return nil
}

// checkOpen must be called with s.mu held.
func (s *Store) checkOpen(accounts map[accountKey]uint64, k accountKey, field string) error {
	if _, ok := accounts[k]; !ok {
		return NewDomainError(ErrorAccountIneligibility, field, "account "+k.String()+" not found")
	}

	if s.frozen[k] {
		return NewDomainError(ErrorAccountStatusRestriction, field, "account "+k.String()+" is frozen")
	}

	return nil
}

// move must be called with s.mu held. Inside Atomically the inverse is
// recorded so the mutation can be discarded.
func (s *Store) move(ctx context.Context, accounts map[accountKey]uint64, from, to accountKey, amount uint64) {
	accounts[from] -= amount
	accounts[to] += amount

	if undo := s.undoFrom(ctx); undo != nil {
		undo.record(func() {
			accounts[to] -= amount
			accounts[from] += amount
		})
	}
}
