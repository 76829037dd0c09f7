package settleport

import "math/big"

var bigOne = big.NewInt(1)

// currentAmount linearly interpolates an item's amount over the order's
// active window. With identical endpoints the amount is constant. Otherwise
// the result is exact at elapsed=0 and elapsed=duration, truncating the
// fractional remainder when roundUp is false and rounding it up otherwise.
// Offer items round down and consideration items round up, so the offerer
// is never overpaid and a recipient is never under-delivered.
func currentAmount(startAmount, endAmount, elapsed, remaining, duration *big.Int, roundUp bool) *big.Int {
	if startAmount.Cmp(endAmount) == 0 {
		return new(big.Int).Set(endAmount)
	}

	// start*remaining + end*elapsed, divided by duration.
	total := new(big.Int).Mul(startAmount, remaining)
	total.Add(total, new(big.Int).Mul(endAmount, elapsed))
	if roundUp {
		total.Add(total, new(big.Int).Sub(duration, bigOne))
	}
	return total.Div(total, duration)
}

// applyFraction scales a full-duration amount by the fill fraction n/d,
// truncating: floor(amount*n/d). The intermediate product is arbitrary
// precision, so uint256-scale inputs cannot overflow.
func applyFraction(numerator, denominator, amount *big.Int) *big.Int {
	if numerator.Cmp(denominator) == 0 {
		return new(big.Int).Set(amount)
	}
	scaled := new(big.Int).Mul(amount, numerator)
	return scaled.Div(scaled, denominator)
}

// scaledAmount prices one item for this call: interpolate to the current
// amount, then apply the order's fill fraction.
func scaledAmount(startAmount, endAmount, numerator, denominator, elapsed, remaining, duration *big.Int, roundUp bool) *big.Int {
	current := currentAmount(startAmount, endAmount, elapsed, remaining, duration, roundUp)
	return applyFraction(numerator, denominator, current)
}
