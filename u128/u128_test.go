package u128

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	v, err := Parse("340282366920938463463374607431768211455")
	require.NoError(t, err)
	require.Equal(t, uint128.Max, v)

	w := ToWire(v)
	require.Equal(t, uint64(math.MaxUint64), w.Lo)
	require.Equal(t, uint64(math.MaxUint64), w.Hi)
	require.Equal(t, v, FromWire(w))

	_, err = Parse("-1")
	require.Error(t, err)

	_, err = Parse("340282366920938463463374607431768211456")
	require.Error(t, err)
}

func TestCheckedArithmetic(t *testing.T) {
	t.Parallel()

	_, err := CheckedAdd(uint128.Max, uint128.From64(1))
	require.ErrorIs(t, err, ErrOverflow)

	sum, err := CheckedAdd(uint128.From64(math.MaxUint64), uint128.From64(1))
	require.NoError(t, err)
	require.Equal(t, uint128.New(0, 1), sum)

	_, err = CheckedSub(uint128.From64(1), uint128.From64(2))
	require.ErrorIs(t, err, ErrOverflow)

	q, err := MulDiv64(math.MaxUint64, 10, 20)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64/2), q)

	_, err = MulDiv64(math.MaxUint64, 3, 2)
	require.ErrorIs(t, err, ErrOverflow)

	_, err = MulDiv64(1, 1, 0)
	require.ErrorIs(t, err, ErrOverflow)
}
