package bag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanolabs/consensuscore/collections/amount"
)

func TestAddAccumulatesWeight(t *testing.T) {
	require := require.New(t)

	b := New[string]()
	b.Add("a", amount.FromUint64(10))
	b.Add("a", amount.FromUint64(5))
	b.Add("b", amount.FromUint64(3))

	require.Equal(amount.FromUint64(15), b.Weight("a"))
	require.Equal(amount.FromUint64(3), b.Weight("b"))
	require.Equal(amount.FromUint64(18), b.Total())
	require.Equal(2, b.Len())
}

func TestLeadersPicksTopTwoByWeight(t *testing.T) {
	require := require.New(t)

	b := New[string]()
	b.Add("x", amount.FromUint64(30))
	b.Add("y", amount.FromUint64(50))
	b.Add("z", amount.FromUint64(10))

	leader, leaderWeight, runnerUp, runnerUpWeight := b.Leaders(func(a, bb string) bool { return a < bb })

	require.Equal("y", leader)
	require.Equal(amount.FromUint64(50), leaderWeight)
	require.Equal("x", runnerUp)
	require.Equal(amount.FromUint64(30), runnerUpWeight)
}

func TestLeadersTieBreak(t *testing.T) {
	require := require.New(t)

	b := New[string]()
	b.Add("b", amount.FromUint64(10))
	b.Add("a", amount.FromUint64(10))

	leader, _, runnerUp, _ := b.Leaders(func(x, y string) bool { return x < y })

	require.Equal("a", leader)
	require.Equal("b", runnerUp)
}
