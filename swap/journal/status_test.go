package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/lib-swap/swap/account"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"PENDING", "COMMITTED", "ABORTED", "COMPENSATED", "COMPENSATION_FAILED"} {
		status, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, status.String())
	}

	_, err := ParseStatus("pending")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusCommitted, true},
		{StatusPending, StatusAborted, true},
		{StatusPending, StatusCompensated, true},
		{StatusPending, StatusCompensationFailed, true},
		{StatusPending, StatusPending, false},
		{StatusCompensationFailed, StatusCompensated, true},
		{StatusCompensationFailed, StatusCompensationFailed, true},
		{StatusCompensationFailed, StatusCommitted, false},
		{StatusCommitted, StatusCompensated, false},
		{StatusAborted, StatusPending, false},
		{StatusCompensated, StatusCompensationFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNeedsRecovery(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusPending.NeedsRecovery())
	assert.True(t, StatusCompensationFailed.NeedsRecovery())
	assert.False(t, StatusCommitted.NeedsRecovery())
	assert.False(t, StatusAborted.NeedsRecovery())
	assert.False(t, StatusCompensated.NeedsRecovery())
}

func TestEntryOutstanding(t *testing.T) {
	t.Parallel()

	e := NewEntry(account.Set{}, 10, 0, 0, 10)
	now := time.Now()

	require.NoError(t, e.ApplyLeg("net-transfer", now))
	require.NoError(t, e.ApplyLeg("unit-transfer", now))
	assert.Equal(t, []string{"unit-transfer", "net-transfer"}, e.Outstanding())

	require.ErrorIs(t, e.ApplyLeg("", now), ErrLegRequired)
	require.NoError(t, e.Transition(StatusCompensationFailed, "fee-transfer", "boom", now))
	require.NoError(t, e.CompensateLeg("unit-transfer", now))
	assert.Equal(t, []string{"net-transfer"}, e.Outstanding())

	require.ErrorIs(t, e.CompensateLeg("fee-transfer", now), ErrInvalidTransition)
	require.ErrorIs(t, e.Transition(Status("NOPE"), "", "", now), ErrInvalidStatus)
}

func TestEntryClone(t *testing.T) {
	t.Parallel()

	e := NewEntry(account.Set{}, 10, 0, 0, 10)
	e.Applied = []string{"net-transfer"}

	clone := e.Clone()
	clone.Applied[0] = "changed"

	assert.Equal(t, "net-transfer", e.Applied[0])
	assert.Nil(t, (*Entry)(nil).Clone())
}
