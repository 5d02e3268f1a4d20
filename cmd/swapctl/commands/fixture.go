package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/LerianStudio/lib-swap/swap/account"
	"github.com/LerianStudio/lib-swap/swap/ledger/memledger"
)

var (
	errEmptyFixture   = errors.New("fixture opens no accounts")
	errInvalidFixture = errors.New("invalid fixture")
)

// fixture describes the ledger state a swap runs against.
//
//	fungible:
//	  - {ledger: usd, address: alice, balance: 100}
//	units:
//	  - {ledger: art, address: alice, units: 1}
//	frozen:
//	  - {ledger: usd, address: mallory}
//	swap: [usd:alice, usd:bob, art:alice, art:bob, usd:treasury]
type fixture struct {
	Fungible []fungibleAccount `yaml:"fungible" validate:"dive"`
	Units    []unitAccount     `yaml:"units" validate:"dive"`
	Frozen   []fixtureAccount  `yaml:"frozen" validate:"dive"`
	// Swap lists the handles passed to the swap, in "ledger:address" form.
	Swap []string `yaml:"swap" validate:"dive,required"`
}

type fixtureAccount struct {
	Ledger  string `yaml:"ledger" validate:"required,max=64"`
	Address string `yaml:"address" validate:"required,max=128"`
}

func (a fixtureAccount) handle() account.Handle {
	return account.Handle{LedgerID: a.Ledger, Address: a.Address}
}

type fungibleAccount struct {
	fixtureAccount `yaml:",inline"`
	Balance        uint64 `yaml:"balance"`
}

type unitAccount struct {
	fixtureAccount `yaml:",inline"`
	Units          uint64 `yaml:"units"`
}

var fixtureValidator = validator.New(validator.WithRequiredStructEnabled())

func loadFixture(path string) (*fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}

	return parseFixture(raw)
}

func parseFixture(raw []byte) (*fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var fx fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}

	if len(fx.Fungible) == 0 && len(fx.Units) == 0 {
		return nil, errEmptyFixture
	}

	if err := fixtureValidator.Struct(fx); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]

			return nil, fmt.Errorf("%w: %s fails %q", errInvalidFixture, fe.Namespace(), fe.Tag())
		}

		return nil, fmt.Errorf("%w: %w", errInvalidFixture, err)
	}

	return &fx, nil
}

// handles parses the swap list. Fewer than five handles is not an error
// here; the orchestrator reports it.
func (fx *fixture) handles() ([]account.Handle, error) {
	out := make([]account.Handle, 0, len(fx.Swap))

	for _, raw := range fx.Swap {
		h, err := account.ParseHandle(raw)
		if err != nil {
			return nil, err
		}

		out = append(out, h)
	}

	return out, nil
}

func (fx *fixture) seed(store *memledger.Store) {
	for _, a := range fx.Fungible {
		store.OpenFungible(a.Ledger, a.Address, a.Balance)
	}

	for _, a := range fx.Units {
		store.OpenUnits(a.Ledger, a.Address, a.Units)
	}

	for _, a := range fx.Frozen {
		h := a.handle()
		store.Freeze(h.LedgerID, h.Address)
	}
}
