package repregistry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
)

func rh(b byte) hash.Hash {
	var h hash.Hash
	h[0] = b
	return h
}

func TestRegistry_PrincipalThresholdEnforcedOffDevNet(t *testing.T) {
	r := New(amount.FromUint64(100), false)
	small := rh(1)
	big := rh(2)
	r.SetWeight(small, amount.FromUint64(50))
	r.SetWeight(big, amount.FromUint64(200))

	require.False(t, r.IsPrincipal(small))
	require.True(t, r.IsPrincipal(big))
}

func TestRegistry_DevNetBypassesThreshold(t *testing.T) {
	r := New(amount.FromUint64(100), true)
	rep := rh(1)
	r.SetWeight(rep, amount.FromUint64(1))

	require.True(t, r.IsPrincipal(rep))
}

func TestRegistry_PrincipalsAndTotalOnlineWeight(t *testing.T) {
	r := New(amount.FromUint64(100), false)
	r.SetWeight(rh(1), amount.FromUint64(50))  // below threshold
	r.SetWeight(rh(2), amount.FromUint64(200)) // principal
	r.SetWeight(rh(3), amount.FromUint64(300)) // principal

	principals := r.Principals()
	require.Len(t, principals, 2)
	require.Equal(t, amount.FromUint64(500), r.TotalOnlineWeight())
}

func TestRegistry_UnknownRepHasZeroWeight(t *testing.T) {
	r := New(amount.FromUint64(100), false)
	require.Equal(t, amount.Zero, r.Weight(rh(0xFF)))
	require.False(t, r.IsPrincipal(rh(0xFF)))
}
