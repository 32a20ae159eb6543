// Package numeric holds the exact arithmetic used for token amounts, reserves
// and prices. Amounts stay as base-unit integers; anything human-scaled is a
// decimal. Nothing here touches floating point.
package numeric

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount marks an amount that cannot be an on-chain uint256.
var ErrInvalidAmount = errors.New("invalid amount")

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseUint256 parses a base-10 unsigned 256-bit integer.
func ParseUint256(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	val, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	if err := CheckUint256(val); err != nil {
		return nil, err
	}
	return val, nil
}

// CheckUint256 rejects nil, negative, and oversized values.
func CheckUint256(val *big.Int) error {
	switch {
	case val == nil:
		return fmt.Errorf("%w: missing", ErrInvalidAmount)
	case val.Sign() < 0:
		return fmt.Errorf("%w: negative %s", ErrInvalidAmount, val.String())
	case val.Cmp(maxUint256) > 0:
		return fmt.Errorf("%w: exceeds uint256", ErrInvalidAmount)
	}
	return nil
}

// FromBaseUnits scales a base-unit integer down by 10^decimals.
func FromBaseUnits(val *big.Int, decimals uint8) decimal.Decimal {
	if val == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(val, -int32(decimals))
}

// FormatUnits renders a base-unit integer with exactly decimals fractional digits.
func FormatUnits(val *big.Int, decimals uint8) string {
	if val == nil {
		return "0"
	}
	if decimals == 0 {
		return val.String()
	}
	sign := val.Sign()
	abs := new(big.Int).Abs(val)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(abs, denom).FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// Zero returns a fresh zero integer.
func Zero() *big.Int {
	return new(big.Int)
}

// Copy returns an independent copy of val, or zero for nil.
func Copy(val *big.Int) *big.Int {
	if val == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(val)
}

// Unpriced is the USD state used until a price source exists.
func Unpriced() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// Priced wraps a known USD amount.
func Priced(val decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: val, Valid: true}
}

// AddUSD sums two USD amounts. An unpriced operand contributes nothing.
func AddUSD(total, delta decimal.NullDecimal) decimal.NullDecimal {
	if !delta.Valid {
		return total
	}
	if !total.Valid {
		return delta
	}
	return Priced(total.Decimal.Add(delta.Decimal))
}
