package account

import (
	"errors"
	"fmt"
	"strings"
)

// Required is the number of handles a swap consumes.
const Required = 5

var (
	// ErrAccountMissing is returned when the handle list runs out.
	ErrAccountMissing = errors.New("account missing")
	// ErrInvalidHandle is returned by ParseHandle for malformed input.
	ErrInvalidHandle = errors.New("invalid account handle")
)

// Handle references an account on a ledger. It carries no balance; balances
// are always read from the owning ledger at call time.
type Handle struct {
	LedgerID string `json:"ledgerId" yaml:"ledger"`
	Address  string `json:"address" yaml:"address"`
}

// String renders the handle as "ledger:address".
func (h Handle) String() string {
	return h.LedgerID + ":" + h.Address
}

// LockKey is the key under which concurrent swaps touching h serialize.
func (h Handle) LockKey() string {
	return "swap:" + h.String()
}

// ParseHandle parses the "ledger:address" form produced by String.
func ParseHandle(raw string) (Handle, error) {
	ledgerID, address, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || strings.TrimSpace(ledgerID) == "" || strings.TrimSpace(address) == "" {
		return Handle{}, fmt.Errorf("%w: %q", ErrInvalidHandle, raw)
	}

	return Handle{LedgerID: strings.TrimSpace(ledgerID), Address: strings.TrimSpace(address)}, nil
}

// Resolver hands out caller-supplied handles one at a time, in order.
//
// A Resolver is consumed by a single invocation and is not safe for
// concurrent use.
type Resolver struct {
	handles []Handle
	next    int
}

// NewResolver returns a Resolver over handles. The slice is not copied.
func NewResolver(handles []Handle) *Resolver {
	return &Resolver{handles: handles}
}

// Next returns the next handle, or ErrAccountMissing once the list is
// exhausted.
func (r *Resolver) Next() (Handle, error) {
	if r == nil || r.next >= len(r.handles) {
		position := 0
		if r != nil {
			position = r.next
		}

		return Handle{}, fmt.Errorf("%w: no handle at position %d", ErrAccountMissing, position)
	}

	h := r.handles[r.next]
	r.next++

	return h, nil
}

// Remaining reports how many handles have not been consumed.
func (r *Resolver) Remaining() int {
	if r == nil {
		return 0
	}

	return len(r.handles) - r.next
}

// Set is the five accounts a swap touches.
type Set struct {
	SourceFungible Handle `json:"sourceFungible" yaml:"sourceFungible"`
	DestFungible   Handle `json:"destFungible" yaml:"destFungible"`
	SourceUnit     Handle `json:"sourceUnit" yaml:"sourceUnit"`
	DestUnit       Handle `json:"destUnit" yaml:"destUnit"`
	FeeSink        Handle `json:"feeSink" yaml:"feeSink"`
}

// ResolveSet consumes exactly five handles from r in the fixed order: source
// fungible, destination fungible, source unit, destination unit, fee sink.
func ResolveSet(r *Resolver) (Set, error) {
	var set Set

	for _, slot := range []*Handle{
		&set.SourceFungible,
		&set.DestFungible,
		&set.SourceUnit,
		&set.DestUnit,
		&set.FeeSink,
	} {
		h, err := r.Next()
		if err != nil {
			return Set{}, err
		}

		*slot = h
	}

	return set, nil
}

// LockKeys returns the lock keys for every account in the set.
// Duplicates are kept; lockers de-duplicate.
func (s Set) LockKeys() []string {
	return []string{
		s.SourceFungible.LockKey(),
		s.DestFungible.LockKey(),
		s.SourceUnit.LockKey(),
		s.DestUnit.LockKey(),
		s.FeeSink.LockKey(),
	}
}
