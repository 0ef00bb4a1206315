package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLessIsLexicographic(t *testing.T) {
	require := require.New(t)

	a := Hash{0x01}
	b := Hash{0x02}

	require.True(a.Less(b))
	require.False(b.Less(a))
	require.False(a.Less(a))
}

func TestFromBytesRoundTrip(t *testing.T) {
	require := require.New(t)

	raw := make([]byte, Size)
	for i := range raw {
		raw[i] = byte(i)
	}
	h, err := FromBytes(raw)
	require.NoError(err)
	require.Equal(raw, h[:])

	_, err = FromBytes(raw[:Size-1])
	require.Error(err)
}

func TestFromHex(t *testing.T) {
	require := require.New(t)

	hex64 := "0100000000000000000000000000000000000000000000000000000000000000"[:64]
	h, err := FromHex(hex64)
	require.NoError(err)
	require.Equal(hex64, h.String())

	_, err = FromHex("zz")
	require.Error(err)

	_, err = FromHex("0011")
	require.Error(err) // too short for a 32-byte hash
}

func TestZeroAndIsZero(t *testing.T) {
	require := require.New(t)

	require.True(Zero.IsZero())
	h := Hash{0x01}
	require.False(h.IsZero())
}
