// Package pricing derives spot price and pool value from constant-product
// reserves.
package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"

	"launchpadIndexer/internal/numeric"
)

// SignificantDigits is how many significant digits a non-terminating price
// keeps. Terminating ratios are never rounded.
const SignificantDigits = 36

// Quote is the market snapshot derived from one reserve pair.
type Quote struct {
	Price     decimal.Decimal
	Liquidity decimal.Decimal
	MarketCap decimal.Decimal
}

// Price returns the BNB price of one whole token. ok is false when the token
// reserve is zero or missing, in which case the price is undefined. Both
// reserves share decimals, so the price is the plain ratio of base units.
func Price(reserveToken, reserveBNB *big.Int, decimals uint8) (decimal.Decimal, bool) {
	if reserveToken == nil || reserveToken.Sign() <= 0 {
		return decimal.Zero, false
	}
	if reserveBNB == nil || reserveBNB.Sign() == 0 {
		return decimal.Zero, true
	}
	return ratio(new(big.Rat).SetFrac(reserveBNB, reserveToken)), true
}

// ratio renders r exactly when its reduced denominator is 2^a*5^b, and to
// SignificantDigits otherwise.
func ratio(r *big.Rat) decimal.Decimal {
	num, den := r.Num(), r.Denom()
	if places, ok := terminatingPlaces(den); ok {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)
		scaled := new(big.Int).Mul(num, scale)
		scaled.Quo(scaled, den)
		return decimal.NewFromBigInt(scaled, -int32(places))
	}

	magnitude := len(new(big.Int).Abs(num).String()) - len(den.String())
	places := SignificantDigits - magnitude
	if places < 0 {
		places = 0
	}
	return decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(den, 0), int32(places))
}

// terminatingPlaces reports the fractional digits of 1/den when den has no
// prime factors besides 2 and 5.
func terminatingPlaces(den *big.Int) (int, bool) {
	rest := new(big.Int).Set(den)
	var twos, fives int
	mod := new(big.Int)
	for _, f := range []struct {
		p     int64
		count *int
	}{{2, &twos}, {5, &fives}} {
		p := big.NewInt(f.p)
		for {
			q, m := new(big.Int).QuoRem(rest, p, mod)
			if m.Sign() != 0 {
				break
			}
			rest = q
			*f.count++
		}
	}
	if rest.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	if twos > fives {
		return twos, true
	}
	return fives, true
}

// Liquidity values both sides of the pool in BNB. A constant-product pool
// holds equal value on each side, so this is twice the BNB reserve.
func Liquidity(reserveBNB *big.Int, decimals uint8) decimal.Decimal {
	return numeric.FromBaseUnits(reserveBNB, decimals).Mul(decimal.NewFromInt(2))
}

// MarketCap values the full supply at price. The product is exact.
func MarketCap(price decimal.Decimal, totalSupply *big.Int, decimals uint8) decimal.Decimal {
	return price.Mul(numeric.FromBaseUnits(totalSupply, decimals))
}

// Compute builds a Quote from reserves and supply.
func Compute(reserveToken, reserveBNB, totalSupply *big.Int, decimals uint8) (Quote, bool) {
	price, ok := Price(reserveToken, reserveBNB, decimals)
	if !ok {
		return Quote{}, false
	}
	return Quote{
		Price:     price,
		Liquidity: Liquidity(reserveBNB, decimals),
		MarketCap: MarketCap(price, totalSupply, decimals),
	}, true
}
