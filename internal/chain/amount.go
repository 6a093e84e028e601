package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a human amount such as "0.5" into base units with the
// given number of decimals. Amounts with more precision than decimals are rejected.
func ParseAmount(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAmount, s, err)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w %q: negative", ErrInvalidAmount, s)
	}
	units := d.Shift(int32(decimals))
	if !units.IsInteger() {
		return nil, fmt.Errorf("%w %q: more than %d decimals", ErrInvalidAmount, s, decimals)
	}
	return units.BigInt(), nil
}

// FormatAmount renders base units as a decimal string.
func FormatAmount(units *big.Int, decimals uint8) string {
	if units == nil {
		return "0"
	}
	return decimal.NewFromBigInt(units, -int32(decimals)).String()
}
