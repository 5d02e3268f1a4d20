// Package journaltest provides a behavioural suite every journal.Journal
// implementation must pass.
package journaltest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/lib-swap/swap/account"
	"github.com/LerianStudio/lib-swap/swap/journal"
)

// Factory opens a fresh, empty journal for one subtest.
type Factory func(t *testing.T) journal.Journal

func sampleSet() account.Set {
	return account.Set{
		SourceFungible: account.Handle{LedgerID: "usd", Address: "alice"},
		DestFungible:   account.Handle{LedgerID: "usd", Address: "bob"},
		SourceUnit:     account.Handle{LedgerID: "art", Address: "alice"},
		DestUnit:       account.Handle{LedgerID: "art", Address: "bob"},
		FeeSink:        account.Handle{LedgerID: "usd", Address: "treasury"},
	}
}

// Run executes the suite against journals produced by open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	ctx := context.Background()

	t.Run("begin and get", func(t *testing.T) {
		j := open(t)
		entry := journal.NewEntry(sampleSet(), 100, 5, 5, 95)

		require.NoError(t, j.Begin(ctx, entry))

		got, err := j.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, journal.StatusPending, got.Status)
		assert.Equal(t, sampleSet(), got.Accounts)
		assert.Equal(t, uint64(95), got.Net)
		assert.Equal(t, uint64(5), got.Fee)
		assert.WithinDuration(t, entry.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("begin rejects duplicates and bad entries", func(t *testing.T) {
		j := open(t)
		entry := journal.NewEntry(sampleSet(), 1, 0, 0, 1)

		require.NoError(t, j.Begin(ctx, entry))
		require.ErrorIs(t, j.Begin(ctx, entry), journal.ErrEntryExists)
		require.ErrorIs(t, j.Begin(ctx, nil), journal.ErrEntryRequired)

		noID := journal.NewEntry(sampleSet(), 1, 0, 0, 1)
		noID.ID = uuid.Nil
		require.ErrorIs(t, j.Begin(ctx, noID), journal.ErrEntryIDRequired)

		done := journal.NewEntry(sampleSet(), 1, 0, 0, 1)
		done.Status = journal.StatusCommitted
		require.ErrorIs(t, j.Begin(ctx, done), journal.ErrInvalidTransition)
	})

	t.Run("get unknown", func(t *testing.T) {
		j := open(t)

		_, err := j.Get(ctx, uuid.New())
		require.ErrorIs(t, err, journal.ErrEntryNotFound)
		require.ErrorIs(t, j.MarkApplied(ctx, uuid.New(), "net-transfer"), journal.ErrEntryNotFound)
		require.ErrorIs(t, j.MarkAttempting(ctx, uuid.New(), "net-transfer"), journal.ErrEntryNotFound)
		require.ErrorIs(t, j.Finish(ctx, uuid.New(), journal.StatusCommitted, "", ""), journal.ErrEntryNotFound)
	})

	t.Run("applied legs then commit", func(t *testing.T) {
		j := open(t)
		entry := journal.NewEntry(sampleSet(), 100, 5, 5, 95)
		require.NoError(t, j.Begin(ctx, entry))

		require.NoError(t, j.MarkApplied(ctx, entry.ID, "net-transfer"))
		require.NoError(t, j.MarkApplied(ctx, entry.ID, "unit-transfer"))
		require.NoError(t, j.MarkApplied(ctx, entry.ID, "unit-transfer"))
		require.NoError(t, j.Finish(ctx, entry.ID, journal.StatusCommitted, "", ""))

		got, err := j.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"net-transfer", "unit-transfer"}, got.Applied)
		assert.Equal(t, journal.StatusCommitted, got.Status)

		require.ErrorIs(t, j.MarkApplied(ctx, entry.ID, "fee-transfer"), journal.ErrInvalidTransition)
		require.ErrorIs(t, j.Finish(ctx, entry.ID, journal.StatusAborted, "", ""), journal.ErrInvalidTransition)
	})

	t.Run("in-flight legs", func(t *testing.T) {
		j := open(t)
		entry := journal.NewEntry(sampleSet(), 100, 5, 5, 95)
		require.NoError(t, j.Begin(ctx, entry))

		require.ErrorIs(t, j.MarkAttempting(ctx, entry.ID, ""), journal.ErrLegRequired)
		require.NoError(t, j.MarkAttempting(ctx, entry.ID, "net-transfer"))

		got, err := j.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "net-transfer", got.InFlight)
		assert.Equal(t, "net-transfer", got.Unconfirmed())

		require.NoError(t, j.MarkApplied(ctx, entry.ID, "net-transfer"))
		require.NoError(t, j.MarkAttempting(ctx, entry.ID, "unit-transfer"))

		got, err = j.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "unit-transfer", got.Unconfirmed())

		require.NoError(t, j.Finish(ctx, entry.ID, journal.StatusCompensated, "unit-transfer", "frozen"))

		got, err = j.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Unconfirmed(), "a recorded failure settles the in-flight leg")
		require.ErrorIs(t, j.MarkAttempting(ctx, entry.ID, "fee-transfer"), journal.ErrInvalidTransition)
	})

	t.Run("compensation failure then recovery", func(t *testing.T) {
		j := open(t)
		entry := journal.NewEntry(sampleSet(), 100, 5, 5, 95)
		require.NoError(t, j.Begin(ctx, entry))
		require.NoError(t, j.MarkApplied(ctx, entry.ID, "net-transfer"))

		require.ErrorIs(t, j.MarkCompensated(ctx, entry.ID, "unit-transfer"), journal.ErrInvalidTransition)

		require.NoError(t, j.Finish(ctx, entry.ID, journal.StatusCompensationFailed, "unit-transfer", "ledger down"))

		got, err := j.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "unit-transfer", got.FailedLeg)
		assert.Equal(t, "ledger down", got.LastError)
		assert.Equal(t, []string{"net-transfer"}, got.Outstanding())

		require.NoError(t, j.MarkCompensated(ctx, entry.ID, "net-transfer"))
		require.NoError(t, j.Finish(ctx, entry.ID, journal.StatusCompensated, "", ""))

		got, err = j.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, journal.StatusCompensated, got.Status)
		assert.Equal(t, "unit-transfer", got.FailedLeg, "failed leg is kept")
		assert.Empty(t, got.LastError)
		assert.Empty(t, got.Outstanding())
		assert.Equal(t, 1, got.Attempts)
	})

	t.Run("list by status", func(t *testing.T) {
		j := open(t)

		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		ids := make([]uuid.UUID, 0, 3)

		for i := range 3 {
			entry := journal.NewEntry(sampleSet(), uint64(i), 0, 0, uint64(i))
			entry.CreatedAt = base.Add(time.Duration(2-i) * time.Minute)
			entry.UpdatedAt = entry.CreatedAt
			require.NoError(t, j.Begin(ctx, entry))
			ids = append(ids, entry.ID)
		}

		require.NoError(t, j.Finish(ctx, ids[1], journal.StatusAborted, "net-transfer", "rejected"))

		pending, err := j.ListByStatus(ctx, journal.StatusPending, 0)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, ids[2], pending[0].ID, "oldest first")
		assert.Equal(t, ids[0], pending[1].ID)

		limited, err := j.ListByStatus(ctx, journal.StatusPending, 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)

		aborted, err := j.ListByStatus(ctx, journal.StatusAborted, 10)
		require.NoError(t, err)
		require.Len(t, aborted, 1)
		assert.Equal(t, ids[1], aborted[0].ID)

		_, err = j.ListByStatus(ctx, journal.Status("BOGUS"), 0)
		require.ErrorIs(t, err, journal.ErrInvalidStatus)
	})

	t.Run("returned entries are copies", func(t *testing.T) {
		j := open(t)
		entry := journal.NewEntry(sampleSet(), 1, 0, 0, 1)
		require.NoError(t, j.Begin(ctx, entry))
		require.NoError(t, j.MarkApplied(ctx, entry.ID, "net-transfer"))

		got, err := j.Get(ctx, entry.ID)
		require.NoError(t, err)
		got.Applied[0] = "tampered"
		got.Status = journal.StatusCommitted

		again, err := j.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"net-transfer"}, again.Applied)
		assert.Equal(t, journal.StatusPending, again.Status)
	})
}
