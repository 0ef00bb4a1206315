package votegenerator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election/recentcache"
	"github.com/nanolabs/consensuscore/internal/election/votecache"
	"github.com/nanolabs/consensuscore/internal/voterouter"
	"github.com/nanolabs/consensuscore/repregistry"
	"github.com/nanolabs/consensuscore/transport"
	"github.com/nanolabs/consensuscore/transport/transportmock"
	"github.com/nanolabs/consensuscore/wallet/memwallet"
)

// Exercises go.uber.org/mock's gomock.Controller directly, the way
// the teacher gates its own narrow interfaces behind generated mocks
// (validator/validatorsmock), to assert the exact Flood call shape
// rather than just observing what landed in a loopback transport.
func TestGeneratorFloodsOncePerVotingKey(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w, err := memwallet.New(3)
	require.NoError(err)
	keys := w.VotingKeys()

	weights := repregistry.New(amount.FromUint64(1), true)
	recent := recentcache.New(64)
	cache := votecache.New(64, 8)
	router := voterouter.New(recent, cache, weights, nil, nil)

	seen := make(map[hash.Hash]bool)

	mockTr := transportmock.NewMockTransport(ctrl)
	mockTr.EXPECT().
		Flood(gomock.Any(), gomock.AssignableToTypeOf(transport.VoteMessage{}), transport.DropOldest, 1.0).
		Times(len(keys)).
		Do(func(_ context.Context, msg transport.Message, _ transport.DropPolicy, _ float64) {
			vote, ok := msg.(transport.VoteMessage)
			require.True(ok)
			seen[vote.Representative] = true
		})

	g := New(false, 1, time.Hour, w, mockTr, router, nil, nil)
	root := hash.QualifiedRoot{Root: accountHash(1)}
	g.Add(root, accountHash(2))
	g.flush(context.Background())

	require.Len(seen, len(keys))
	for _, k := range keys {
		require.True(seen[k.Account])
	}
}
