package recentcache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanolabs/consensuscore/collections/hash"
)

func qr(b byte) hash.QualifiedRoot {
	var h hash.Hash
	h[0] = b
	return hash.QualifiedRoot{Root: h}
}

func wh(b byte) hash.Hash {
	var h hash.Hash
	h[0] = b
	return h
}

func TestPutAndMembership(t *testing.T) {
	require := require.New(t)

	c := New(4)
	c.Put(qr(1), wh(0x10))

	require.True(c.Exists(wh(0x10)))
	require.True(c.RootExists(qr(1)))
	require.True(c.RootMatches(qr(1), wh(0x10)))
	require.False(c.RootMatches(qr(1), wh(0x11)))
	require.False(c.Exists(wh(0x11)))
	require.Equal(1, c.Len())
}

func TestEvictsOldestInFIFOOrder(t *testing.T) {
	require := require.New(t)

	c := New(2)
	c.Put(qr(1), wh(0x10))
	c.Put(qr(2), wh(0x20))
	c.Put(qr(3), wh(0x30))

	require.Equal(2, c.Len())
	require.False(c.Exists(wh(0x10)))
	require.False(c.RootExists(qr(1)))
	require.True(c.Exists(wh(0x20)))
	require.True(c.Exists(wh(0x30)))
}

func TestPutSameRootReplacesEntry(t *testing.T) {
	require := require.New(t)

	c := New(4)
	c.Put(qr(1), wh(0x10))
	c.Put(qr(1), wh(0x11))

	require.Equal(1, c.Len())
	require.False(c.Exists(wh(0x10)))
	require.True(c.RootMatches(qr(1), wh(0x11)))
}

func TestBackReturnsNewestEntry(t *testing.T) {
	require := require.New(t)

	c := New(4)
	_, _, ok := c.Back()
	require.False(ok)

	c.Put(qr(1), wh(0x10))
	c.Put(qr(2), wh(0x20))

	root, win, ok := c.Back()
	require.True(ok)
	require.Equal(qr(2), root)
	require.Equal(wh(0x20), win)
}

func TestClearEmptiesBothIndexes(t *testing.T) {
	require := require.New(t)

	c := New(4)
	c.Put(qr(1), wh(0x10))
	c.Clear()

	require.Zero(c.Len())
	require.False(c.Exists(wh(0x10)))
	require.False(c.RootExists(qr(1)))
}
