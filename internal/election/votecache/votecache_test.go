package votecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
)

func vh(b byte) hash.Hash {
	var h hash.Hash
	h[0] = b
	return h
}

func TestInsertAndFind(t *testing.T) {
	require := require.New(t)

	c := New(8, 4)
	now := time.Now()
	c.Insert(vh(1), amount.FromUint64(50), 7, []hash.Hash{vh(0x10), vh(0x11)}, now)

	entries := c.Find(vh(0x10))
	require.Len(entries, 1)
	require.Equal(vh(1), entries[0].Voter)
	require.Equal(amount.FromUint64(50), entries[0].Weight)
	require.Equal(uint64(7), entries[0].Timestamp)

	require.Len(c.Find(vh(0x11)), 1)
	require.Equal(2, c.Len())
}

func TestInsertKeepsNewestTimestampPerVoter(t *testing.T) {
	require := require.New(t)

	c := New(8, 4)
	now := time.Now()
	c.Insert(vh(1), amount.FromUint64(50), 9, []hash.Hash{vh(0x10)}, now)
	c.Insert(vh(1), amount.FromUint64(50), 3, []hash.Hash{vh(0x10)}, now)

	entries := c.Find(vh(0x10))
	require.Len(entries, 1)
	require.Equal(uint64(9), entries[0].Timestamp)

	c.Insert(vh(1), amount.FromUint64(50), 12, []hash.Hash{vh(0x10)}, now)
	entries = c.Find(vh(0x10))
	require.Len(entries, 1)
	require.Equal(uint64(12), entries[0].Timestamp)
}

func TestPerHashVoterCapEvictsOldest(t *testing.T) {
	require := require.New(t)

	c := New(8, 2)
	now := time.Now()
	for i := byte(1); i <= 3; i++ {
		c.Insert(vh(i), amount.FromUint64(10), 1, []hash.Hash{vh(0x10)}, now)
	}

	require.Len(c.Find(vh(0x10)), 2)
}

func TestHashCapEvictsWholeEntries(t *testing.T) {
	require := require.New(t)

	c := New(2, 4)
	now := time.Now()
	c.Insert(vh(1), amount.FromUint64(10), 1, []hash.Hash{vh(0x10)}, now)
	c.Insert(vh(1), amount.FromUint64(10), 1, []hash.Hash{vh(0x11)}, now)
	c.Insert(vh(1), amount.FromUint64(10), 1, []hash.Hash{vh(0x12)}, now)

	require.Equal(2, c.Len())
	require.Empty(c.Find(vh(0x10)))
}

func TestRemoveDropsAllVotersForHash(t *testing.T) {
	require := require.New(t)

	c := New(8, 4)
	now := time.Now()
	c.Insert(vh(1), amount.FromUint64(10), 1, []hash.Hash{vh(0x10)}, now)
	c.Insert(vh(2), amount.FromUint64(10), 1, []hash.Hash{vh(0x10)}, now)
	require.Len(c.Find(vh(0x10)), 2)

	c.Remove(vh(0x10))
	require.Empty(c.Find(vh(0x10)))
	require.Zero(c.Len())
}
