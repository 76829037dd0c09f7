package settleport

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentAmountConstant(t *testing.T) {
	amount := currentAmount(
		big.NewInt(500), big.NewInt(500),
		big.NewInt(30), big.NewInt(70), big.NewInt(100), false)
	assert.Equal(t, int64(500), amount.Int64())
}

func TestCurrentAmountEndpoints(t *testing.T) {
	start, end := big.NewInt(1000), big.NewInt(200)
	duration := big.NewInt(100)

	atStart := currentAmount(start, end, big.NewInt(0), duration, duration, false)
	assert.Equal(t, start.Int64(), atStart.Int64())

	atEnd := currentAmount(start, end, duration, big.NewInt(0), duration, true)
	assert.Equal(t, end.Int64(), atEnd.Int64())
}

func TestCurrentAmountRounding(t *testing.T) {
	// 100 -> 201 over 7 units, sampled 3 units in: exact value is
	// (100*4 + 201*3) / 7 = 1003/7, which is not integral.
	start, end := big.NewInt(100), big.NewInt(201)
	elapsed, remaining, duration := big.NewInt(3), big.NewInt(4), big.NewInt(7)

	down := currentAmount(start, end, elapsed, remaining, duration, false)
	up := currentAmount(start, end, elapsed, remaining, duration, true)

	assert.Equal(t, int64(143), down.Int64())
	assert.Equal(t, int64(144), up.Int64())
}

func TestCurrentAmountRoundingNeverDivergesByMoreThanOne(t *testing.T) {
	start, end := big.NewInt(13), big.NewInt(997)
	duration := big.NewInt(31)

	for elapsed := int64(0); elapsed <= 31; elapsed++ {
		e := big.NewInt(elapsed)
		r := big.NewInt(31 - elapsed)
		down := currentAmount(start, end, e, r, duration, false)
		up := currentAmount(start, end, e, r, duration, true)

		diff := new(big.Int).Sub(up, down)
		require.True(t, diff.Sign() >= 0, "round-up below round-down at elapsed=%d", elapsed)
		require.True(t, diff.Cmp(bigOne) <= 0, "rounding diverged at elapsed=%d", elapsed)
	}
}

func TestApplyFraction(t *testing.T) {
	full := applyFraction(big.NewInt(3), big.NewInt(3), big.NewInt(100))
	assert.Equal(t, int64(100), full.Int64())

	half := applyFraction(big.NewInt(1), big.NewInt(2), big.NewInt(100))
	assert.Equal(t, int64(50), half.Int64())

	// Truncation: 100 * 2 / 3 = 66.66..., floors to 66.
	twoThirds := applyFraction(big.NewInt(2), big.NewInt(3), big.NewInt(100))
	assert.Equal(t, int64(66), twoThirds.Int64())
}

func TestScaledAmountComposes(t *testing.T) {
	// Half fill of a constant 100 with no interpolation.
	scaled := scaledAmount(
		big.NewInt(100), big.NewInt(100),
		big.NewInt(1), big.NewInt(2),
		big.NewInt(10), big.NewInt(90), big.NewInt(100), false)
	assert.Equal(t, int64(50), scaled.Int64())
}
