package journal

import (
	"context"

	"github.com/google/uuid"
)

// Journal persists orchestration progress ahead of ledger effects.
type Journal interface {
	// Begin stores a new PENDING entry.
	Begin(ctx context.Context, entry *Entry) error
	// MarkAttempting records leg as in flight, ahead of the ledger call.
	MarkAttempting(ctx context.Context, id uuid.UUID, leg string) error
	// MarkApplied appends leg to the entry's applied legs.
	MarkApplied(ctx context.Context, id uuid.UUID, leg string) error
	// MarkCompensated records that leg was reversed.
	MarkCompensated(ctx context.Context, id uuid.UUID, leg string) error
	// Finish moves the entry to a new status.
	Finish(ctx context.Context, id uuid.UUID, status Status, failedLeg, lastErr string) error
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	// ListByStatus returns entries oldest first. limit <= 0 means no limit.
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Entry, error)
}
