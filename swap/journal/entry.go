package journal

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/LerianStudio/lib-swap/swap/account"
)

// Entry records the progress of one swap invocation.
//
// InFlight names the last forward leg sent to a ledger. It is written before
// the ledger call, so a leg that is in flight but neither applied nor
// recorded as the failed leg may or may not have taken effect. Applied lists
// forward legs in the order they succeeded; Compensated lists legs whose
// reversal has already succeeded. Recovery reverses Applied minus
// Compensated.
type Entry struct {
	ID          uuid.UUID   `json:"id" yaml:"id"`
	Status      Status      `json:"status" yaml:"status"`
	Mode        string      `json:"mode,omitempty" yaml:"mode,omitempty"`
	Accounts    account.Set `json:"accounts" yaml:"accounts"`
	Gross       uint64      `json:"gross" yaml:"gross"`
	Rate        uint64      `json:"rate" yaml:"rate"`
	Fee         uint64      `json:"fee" yaml:"fee"`
	Net         uint64      `json:"net" yaml:"net"`
	InFlight    string      `json:"inFlight,omitempty" yaml:"inFlight,omitempty"`
	Applied     []string    `json:"applied,omitempty" yaml:"applied,omitempty"`
	Compensated []string    `json:"compensated,omitempty" yaml:"compensated,omitempty"`
	FailedLeg   string      `json:"failedLeg,omitempty" yaml:"failedLeg,omitempty"`
	LastError   string      `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	Attempts    int         `json:"attempts" yaml:"attempts"`
	CreatedAt   time.Time   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt" yaml:"updatedAt"`
}

// NewEntry creates a pending entry with a fresh ID.
func NewEntry(accounts account.Set, gross, rate, fee, net uint64) *Entry {
	now := time.Now().UTC()

	return &Entry{
		ID:        uuid.New(),
		Status:    StatusPending,
		Accounts:  accounts,
		Gross:     gross,
		Rate:      rate,
		Fee:       fee,
		Net:       net,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	clone := *e
	clone.Applied = slices.Clone(e.Applied)
	clone.Compensated = slices.Clone(e.Compensated)

	return &clone
}

// Outstanding returns applied legs not yet compensated, most recent first.
func (e *Entry) Outstanding() []string {
	out := make([]string, 0, len(e.Applied))

	for i := len(e.Applied) - 1; i >= 0; i-- {
		if !slices.Contains(e.Compensated, e.Applied[i]) {
			out = append(out, e.Applied[i])
		}
	}

	return out
}

// Unconfirmed returns the in-flight leg whose outcome was never recorded, or
// "" when every started leg is accounted for.
func (e *Entry) Unconfirmed() string {
	if e.InFlight == "" || e.InFlight == e.FailedLeg || slices.Contains(e.Applied, e.InFlight) {
		return ""
	}

	return e.InFlight
}

// ValidateNew checks that e can be stored by Begin.
func (e *Entry) ValidateNew() error {
	if e == nil {
		return ErrEntryRequired
	}

	if e.ID == uuid.Nil {
		return ErrEntryIDRequired
	}

	if e.Status != StatusPending {
		return fmt.Errorf("%w: new entry must be %s, got %s", ErrInvalidTransition, StatusPending, e.Status)
	}

	return nil
}

// AttemptLeg records that leg is about to be sent to its ledger. Only PENDING
// entries accept legs.
func (e *Entry) AttemptLeg(leg string, now time.Time) error {
	if leg == "" {
		return ErrLegRequired
	}

	if e.Status != StatusPending {
		return fmt.Errorf("%w: cannot attempt leg %s of %s entry", ErrInvalidTransition, leg, e.Status)
	}

	e.InFlight = leg
	e.UpdatedAt = now

	return nil
}

// ApplyLeg records a successful forward leg. Only PENDING entries accept legs.
func (e *Entry) ApplyLeg(leg string, now time.Time) error {
	if leg == "" {
		return ErrLegRequired
	}

	if e.Status != StatusPending {
		return fmt.Errorf("%w: cannot apply leg %s to %s entry", ErrInvalidTransition, leg, e.Status)
	}

	if !slices.Contains(e.Applied, leg) {
		e.Applied = append(e.Applied, leg)
	}

	e.UpdatedAt = now

	return nil
}

// CompensateLeg records a successful reversal of an applied leg.
func (e *Entry) CompensateLeg(leg string, now time.Time) error {
	if leg == "" {
		return ErrLegRequired
	}

	if !e.Status.NeedsRecovery() {
		return fmt.Errorf("%w: cannot compensate leg %s of %s entry", ErrInvalidTransition, leg, e.Status)
	}

	if !slices.Contains(e.Applied, leg) {
		return fmt.Errorf("%w: leg %s was never applied", ErrInvalidTransition, leg)
	}

	if !slices.Contains(e.Compensated, leg) {
		e.Compensated = append(e.Compensated, leg)
	}

	e.UpdatedAt = now

	return nil
}

// Transition moves e to status to. Leaving COMPENSATION_FAILED counts as a
// recovery attempt.
func (e *Entry) Transition(to Status, failedLeg, lastErr string, now time.Time) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	if !e.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, to)
	}

	if e.Status == StatusCompensationFailed {
		e.Attempts++
	}

	e.Status = to

	if failedLeg != "" {
		e.FailedLeg = failedLeg
	}

	e.LastError = lastErr
	e.UpdatedAt = now

	return nil
}
