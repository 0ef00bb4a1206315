package quorum

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanolabs/consensuscore/collections/amount"
)

func TestDeltaUsesConfiguredMinimumUntilTrendedExceedsIt(t *testing.T) {
	require := require.New(t)

	tr := NewTracker(amount.FromUint64(1000))
	require.Equal(amount.FromUint64(1000).MulFraction(67, 100), tr.Delta())

	tr.Observe(amount.FromUint64(2000))
	require.Equal(amount.FromUint64(2000), tr.TrendedOnlineWeight())
	require.Equal(amount.FromUint64(2000).MulFraction(67, 100), tr.Delta())
}

func TestObserveKeepsRunningMax(t *testing.T) {
	require := require.New(t)

	tr := NewTracker(amount.Zero)
	tr.Observe(amount.FromUint64(500))
	tr.Observe(amount.FromUint64(100))

	require.Equal(amount.FromUint64(500), tr.TrendedOnlineWeight())
}
