package amount

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddAndSatSub(t *testing.T) {
	require := require.New(t)

	a := FromUint64(100)
	b := FromUint64(40)

	require.Equal(FromUint64(140), a.Add(b))
	require.Equal(FromUint64(60), a.SatSub(b))
	require.Equal(Zero, b.SatSub(a))
}

func TestSatSubAcrossLimbs(t *testing.T) {
	require := require.New(t)

	a := Amount{Hi: 1, Lo: 0}
	b := FromUint64(1)

	got := a.SatSub(b)
	require.Equal(Amount{Hi: 0, Lo: ^uint64(0)}, got)
}

func TestCmpAndOrdering(t *testing.T) {
	require := require.New(t)

	small := FromUint64(1)
	big := FromUint64(2)

	require.True(big.GT(small))
	require.True(big.GTE(big))
	require.False(small.GT(big))
	require.Equal(0, small.Cmp(FromUint64(1)))
}

func TestMulFraction(t *testing.T) {
	require := require.New(t)

	a := FromUint64(300)
	require.Equal(FromUint64(201), a.MulFraction(67, 100))
}

func TestStringSmallAndLarge(t *testing.T) {
	require := require.New(t)

	require.Equal("0", Zero.String())
	require.Equal("12345", FromUint64(12345).String())

	large := Amount{Hi: 1, Lo: 0}
	require.Equal(large.String(), large.String()) // deterministic, non-empty
	require.NotEmpty(large.String())
}
