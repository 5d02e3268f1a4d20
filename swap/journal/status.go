package journal

import "fmt"

// Status is an entry lifecycle state.
type Status string

const (
	StatusPending            Status = "PENDING"
	StatusCommitted          Status = "COMMITTED"
	StatusAborted            Status = "ABORTED"
	StatusCompensated        Status = "COMPENSATED"
	StatusCompensationFailed Status = "COMPENSATION_FAILED"
)

// ParseStatus validates and converts a raw string status.
func ParseStatus(raw string) (Status, error) {
	status := Status(raw)

	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}

	return status, nil
}

// IsValid reports whether the status is part of the lifecycle.
func (status Status) IsValid() bool {
	switch status {
	case StatusPending, StatusCommitted, StatusAborted, StatusCompensated, StatusCompensationFailed:
		return true
	default:
		return false
	}
}

// NeedsRecovery reports whether an entry in this status may still have
// ledger mutations that were never reversed.
func (status Status) NeedsRecovery() bool {
	return status == StatusPending || status == StatusCompensationFailed
}

// CanTransitionTo reports whether a transition from status to next is allowed.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusPending:
		return next == StatusCommitted || next == StatusAborted ||
			next == StatusCompensated || next == StatusCompensationFailed
	case StatusCompensationFailed:
		return next == StatusCompensated || next == StatusCompensationFailed
	default:
		return false
	}
}

func (status Status) String() string {
	return string(status)
}
