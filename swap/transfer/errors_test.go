package transfer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/lib-swap/swap/account"
	"github.com/LerianStudio/lib-swap/swap/ledger/memledger"
)

func TestLegError(t *testing.T) {
	t.Parallel()

	domainErr := memledger.NewDomainError(memledger.ErrorInsufficientFunds, "amount", "source balance cannot cover the amount")
	err := fmt.Errorf("swap: %w", &LegError{Leg: LegFee, Err: domainErr})

	assert.Equal(t, "swap: fee-transfer: 0018: source balance cannot cover the amount (amount)", err.Error())
	require.ErrorIs(t, err, domainErr)

	leg, ok := FailedLeg(err)
	require.True(t, ok)
	assert.Equal(t, LegFee, leg)

	_, ok = FailedLeg(errLedgerDown)
	assert.False(t, ok)

	_, ok = FailedLeg(nil)
	assert.False(t, ok)
}

func TestCompensationError(t *testing.T) {
	t.Parallel()

	errRefund := errors.New("refund rejected")

	err := &CompensationError{
		Leg:   LegNet,
		Cause: &LegError{Leg: LegUnit, Err: errLedgerDown},
		Err:   fmt.Errorf("%s: %w", LegNet, errRefund),
	}

	require.ErrorIs(t, err, errLedgerDown)
	require.ErrorIs(t, err, errRefund)
	assert.Contains(t, err.Error(), "compensating net-transfer failed")

	leg, ok := FailedLeg(err)
	require.True(t, ok)
	assert.Equal(t, LegUnit, leg, "the forward failure is reported")
}

func TestAccountMissingAlias(t *testing.T) {
	t.Parallel()

	assert.Same(t, account.ErrAccountMissing, ErrAccountMissing)
}
