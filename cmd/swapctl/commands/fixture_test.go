package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/lib-swap/swap/account"
	"github.com/LerianStudio/lib-swap/swap/ledger"
	"github.com/LerianStudio/lib-swap/swap/ledger/memledger"
)

const sampleFixture = `
fungible:
  - {ledger: usd, address: alice, balance: 100}
  - {ledger: usd, address: bob, balance: 0}
  - {ledger: usd, address: treasury, balance: 0}
units:
  - {ledger: art, address: alice, units: 1}
  - {ledger: art, address: bob, units: 0}
swap: [usd:alice, usd:bob, art:alice, art:bob, usd:treasury]
`

func writeFixture(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "swap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestParseFixture(t *testing.T) {
	t.Parallel()

	fx, err := parseFixture([]byte(sampleFixture + "frozen:\n  - {ledger: usd, address: bob}\n"))
	require.NoError(t, err)

	require.Len(t, fx.Fungible, 3)
	assert.Equal(t, account.Handle{LedgerID: "usd", Address: "alice"}, fx.Fungible[0].handle())
	assert.Equal(t, uint64(100), fx.Fungible[0].Balance)
	require.Len(t, fx.Units, 2)
	assert.Equal(t, uint64(1), fx.Units[0].Units)

	handles, err := fx.handles()
	require.NoError(t, err)
	require.Len(t, handles, 5)
	assert.Equal(t, account.Handle{LedgerID: "usd", Address: "treasury"}, handles[4])

	store := memledger.New()
	fx.seed(store)

	balance, ok := store.Balance("usd", "alice")
	require.True(t, ok)
	assert.Equal(t, uint64(100), balance)

	units, ok := store.Units("art", "alice")
	require.True(t, ok)
	assert.Equal(t, uint64(1), units)

	err = store.Fungible().Transfer(context.Background(), ledger.FungibleTransfer{
		LedgerID: "usd", From: "alice", To: "bob", Authority: "alice", Signers: []string{"alice"}, Amount: 1,
	})
	code, ok := memledger.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, memledger.ErrorAccountStatusRestriction, code)
}

func TestParseFixtureErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "empty", body: "swap: [usd:alice]\n"},
		{name: "unknown field", body: sampleFixture + "extra: true\n"},
		{name: "malformed", body: "fungible: {"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parseFixture([]byte(tt.body))
			require.Error(t, err)
		})
	}
}

func TestParseFixtureValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "missing address",
			body:  "fungible:\n  - {ledger: usd, balance: 5}\n",
			field: "Address",
		},
		{
			name:  "missing frozen ledger",
			body:  sampleFixture + "frozen:\n  - {address: bob}\n",
			field: "Frozen[0].Ledger",
		},
		{
			name:  "blank swap handle",
			body:  "units:\n  - {ledger: art, address: alice, units: 1}\nswap: [art:alice, \"\"]\n",
			field: "Swap[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parseFixture([]byte(tt.body))
			require.ErrorIs(t, err, errInvalidFixture)
			assert.Contains(t, err.Error(), tt.field)
			assert.Contains(t, err.Error(), `"required"`)
		})
	}
}

func TestFixtureInvalidHandle(t *testing.T) {
	t.Parallel()

	fx, err := parseFixture([]byte(sampleFixture + "\n"))
	require.NoError(t, err)

	fx.Swap = append(fx.Swap, "no-separator")

	_, err = fx.handles()
	require.ErrorIs(t, err, account.ErrInvalidHandle)
}

func TestLoadFixtureMissingFile(t *testing.T) {
	t.Parallel()

	_, err := loadFixture(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
