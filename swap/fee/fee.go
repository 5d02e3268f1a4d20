package fee

import (
	"errors"
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// MaxRate is the largest accepted rate: the whole amount.
const MaxRate Rate = 100

// ErrRateOutOfRange is returned when a rate exceeds MaxRate.
var ErrRateOutOfRange = errors.New("fee rate out of range")

var hundred = uint256.NewInt(100)

// Rate is an integer percentage in [0, 100].
type Rate uint64

// Validate reports whether the rate lies in [0, MaxRate].
func (r Rate) Validate() error {
	if r > MaxRate {
		return fmt.Errorf("%w: %d exceeds %d", ErrRateOutOfRange, uint64(r), uint64(MaxRate))
	}

	return nil
}

// Compute returns floor(gross * rate / 100).
//
// The product is evaluated in 256-bit space so it cannot overflow. Only a rate
// above MaxRate can produce a result wider than 64 bits; that result
// saturates at math.MaxUint64.
func Compute(gross uint64, rate Rate) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(gross), uint256.NewInt(uint64(rate)))
	product.Div(product, hundred)

	if !product.IsUint64() {
		return math.MaxUint64
	}

	return product.Uint64()
}
