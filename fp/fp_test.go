package fp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromUintRoundTrip(t *testing.T) {
	for _, u := range []uint64{0, 1, 42, 1 << 62, (1 << 63) - 1} {
		x, err := FromUint(u)
		require.NoError(t, err)
		got, err := ToUint64(x)
		require.NoError(t, err)
		assert.Equal(t, u, got, "to_uint(from_uint(u)) must round-trip back to u")
	}
}

func TestFromUintOverflow(t *testing.T) {
	_, err := FromUint(1 << 63)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestToUintNegative(t *testing.T) {
	zero, err := FromUint(0)
	require.NoError(t, err)
	one, err := FromUint(1)
	require.NoError(t, err)
	negOne, err := Sub(zero, one)
	require.NoError(t, err)
	_, err = ToUint(negOne)
	assert.ErrorIs(t, err, ErrNegative)
}

func TestDivuBasic(t *testing.T) {
	x, err := DivuUint64(1, 2)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Lsh(big.NewInt(1), 63), x.Raw())
}

func TestDivuByZero(t *testing.T) {
	_, err := DivuUint64(1, 0)
	assert.ErrorIs(t, err, ErrDivByZero)
}

func TestAddSub(t *testing.T) {
	a, _ := FromUint(5)
	b, _ := FromUint(3)
	sum, err := Add(a, b)
	require.NoError(t, err)
	got, _ := ToUint64(sum)
	assert.Equal(t, uint64(8), got)

	diff, err := Sub(a, b)
	require.NoError(t, err)
	got, _ = ToUint64(diff)
	assert.Equal(t, uint64(2), got)
}

func TestMulRoundsTowardNegativeInfinity(t *testing.T) {
	// (-0.5)*(-0.5)=0.25 is exact; (-0.5)*(1/3) is not, and must floor to
	// one unit below what truncation toward zero would give.
	half, err := DivuUint64(1, 2)
	require.NoError(t, err)
	zero, _ := FromUint(0)
	negHalf, err := Sub(zero, half)
	require.NoError(t, err)

	quarter, err := Mul(negHalf, negHalf)
	require.NoError(t, err)
	want, _ := DivuUint64(1, 4)
	assert.Equal(t, want.Raw(), quarter.Raw())

	third, err := DivuUint64(1, 3)
	require.NoError(t, err)
	got, err := Mul(negHalf, third)
	require.NoError(t, err)
	// third's raw value q is odd, so the exact product is -q/2 and its floor
	// is -(q+1)/2.
	floored := new(big.Int).Add(third.Raw(), big.NewInt(1))
	floored.Rsh(floored, 1).Neg(floored)
	assert.Equal(t, floored, got.Raw())
}

func TestMulMatchesRawShift(t *testing.T) {
	a, _ := FromUint(7)
	b, _ := DivuUint64(1, 3)
	got, err := Mul(a, b)
	require.NoError(t, err)

	raw := new(big.Int).Mul(a.Raw(), b.Raw())
	raw.Rsh(raw, fracBits)
	assert.Equal(t, raw, got.Raw())
}

func TestDivRoundTrip(t *testing.T) {
	a, _ := FromUint(7)
	b, _ := FromUint(3)
	q, err := Div(a, b)
	require.NoError(t, err)
	back, err := Mul(q, b)
	require.NoError(t, err)

	// dividing then multiplying back may be off from the original value by
	// at most 2^-63, i.e. two units in the last place.
	diff := new(big.Int).Sub(back.Raw(), a.Raw())
	diff.Abs(diff)
	assert.True(t, diff.Cmp(big.NewInt(2)) <= 0, "diff=%s", diff)
}

func TestDivByZero(t *testing.T) {
	a, _ := FromUint(1)
	zero, _ := FromUint(0)
	_, err := Div(a, zero)
	assert.ErrorIs(t, err, ErrDivByZero)
}

func TestPowZeroZeroIsOne(t *testing.T) {
	x, _ := FromUint(0)
	r, err := Pow(x, 0)
	require.NoError(t, err)
	got, _ := ToUint64(r)
	assert.Equal(t, uint64(1), got)
}

func TestPowSquares(t *testing.T) {
	two, _ := FromUint(2)
	r, err := Pow(two, 5)
	require.NoError(t, err)
	got, err := ToUint64(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(32), got)
}

func TestAddOverflow(t *testing.T) {
	big1, err := FromUint(1 << 62)
	require.NoError(t, err)
	_, err = Add(big1, big1)
	assert.ErrorIs(t, err, ErrOverflow) // 2^62 + 2^62 = 2^63, one past the largest integer part Q64.64 can hold

	huge, err := fromRaw(new(big.Int).Set(maxRaw))
	require.NoError(t, err)
	one, _ := FromUint(1)
	_, err = Add(huge, one)
	assert.ErrorIs(t, err, ErrOverflow)
}
