package types

import "math/big"

// OrderStatus is the per-order ledger record. A zero Denominator means the
// order has never been touched; Numerator == Denominator means fully
// filled. IsCancelled is terminal and overrides all fill state.
type OrderStatus struct {
	IsValidated bool
	IsCancelled bool
	Numerator   *big.Int
	Denominator *big.Int
}

// Untouched reports whether the order has never been validated or filled.
func (s OrderStatus) Untouched() bool {
	return s.Denominator == nil || s.Denominator.Sign() == 0
}

// PartiallyFilled reports whether some but not all of the order has been
// executed.
func (s OrderStatus) PartiallyFilled() bool {
	if s.Untouched() {
		return false
	}
	return s.Numerator.Sign() > 0 && s.Numerator.Cmp(s.Denominator) < 0
}

// FullyFilled reports whether the order has been executed in its entirety.
func (s OrderStatus) FullyFilled() bool {
	if s.Untouched() {
		return false
	}
	return s.Numerator.Cmp(s.Denominator) >= 0
}

// FilledFraction returns the stored numerator and denominator, normalized
// so that neither is nil.
func (s OrderStatus) FilledFraction() (*big.Int, *big.Int) {
	n, d := s.Numerator, s.Denominator
	if n == nil {
		n = new(big.Int)
	}
	if d == nil {
		d = new(big.Int)
	}
	return n, d
}
