package votegenerator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/collections/quorum"
	"github.com/nanolabs/consensuscore/internal/election"
	"github.com/nanolabs/consensuscore/internal/election/recentcache"
	"github.com/nanolabs/consensuscore/internal/election/votecache"
	"github.com/nanolabs/consensuscore/internal/election/votehistory"
	"github.com/nanolabs/consensuscore/internal/voterouter"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/repregistry"
	"github.com/nanolabs/consensuscore/transport"
	"github.com/nanolabs/consensuscore/transport/loopback"
	"github.com/nanolabs/consensuscore/wallet/memwallet"
)

func accountHash(b byte) hash.Hash {
	var h hash.Hash
	h[0] = b
	return h
}

func TestGeneratorFlushesOnBatchSize(t *testing.T) {
	require := require.New(t)

	w, err := memwallet.New(2)
	require.NoError(err)

	weights := repregistry.New(amount.FromUint64(1), true)
	recent := recentcache.New(64)
	cache := votecache.New(64, 8)
	router := voterouter.New(recent, cache, weights, nil, nil)
	history := votehistory.New(64)
	tr := loopback.New(nil)

	g := New(false, 1, time.Hour, w, tr, router, history, nil)

	root := hash.QualifiedRoot{Root: accountHash(1)}
	g.Add(root, accountHash(2))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()

	require.Eventually(func() bool {
		return len(tr.Published) >= 2
	}, 500*time.Millisecond, time.Millisecond)
	cancel()
	<-done

	require.Equal(2, history.Len())
}

func TestFinalGeneratorStampsMaxTimestamp(t *testing.T) {
	require := require.New(t)

	w, err := memwallet.New(1)
	require.NoError(err)

	weights := repregistry.New(amount.FromUint64(1), true)
	recent := recentcache.New(64)
	cache := votecache.New(64, 8)
	router := voterouter.New(recent, cache, weights, nil, nil)
	tr := loopback.New(nil)

	g := New(true, 1, time.Hour, w, tr, router, nil, nil)
	root := hash.QualifiedRoot{Root: accountHash(3)}
	g.Add(root, accountHash(4))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()

	require.Eventually(func() bool {
		return len(tr.Published) >= 1
	}, 500*time.Millisecond, time.Millisecond)
	cancel()
	<-done

	require.Len(tr.Published, 1)
	vote, ok := tr.Published[0].(interface{ Kind() string })
	require.True(ok)
	require.Equal("vote", vote.Kind())
	msg, ok := tr.Published[0].(transport.VoteMessage)
	require.True(ok)
	require.Equal(election.FinalTimestamp, msg.Timestamp)
}

func TestPairBroadcastVoteChoosesFinalAtQuorum(t *testing.T) {
	require := require.New(t)

	weights := repregistry.New(amount.FromUint64(1), true)
	for i := byte(1); i <= 2; i++ {
		weights.SetWeight(accountHash(i), amount.FromUint64(100))
	}
	delta := quorum.NewTracker(amount.Zero)
	delta.Observe(amount.FromUint64(200))

	deps := &election.Deps{Weights: weights, Delta: delta}
	block := ledger.Block{Hash: accountHash(0xAA), Account: accountHash(1)}
	e := election.New(hash.QualifiedRoot{Root: accountHash(1)}, block, election.Priority, time.Now().Add(-time.Hour), deps)

	normal := New(false, 100, time.Hour, nil, nil, nil, nil, nil)
	final := New(true, 100, time.Hour, nil, nil, nil, nil, nil)
	pair := NewPair(normal, final, time.Millisecond)

	e.Lock()
	e.ApplyVote(context.Background(), accountHash(1), 0, block.Hash, election.SourceLive)
	e.ApplyVote(context.Background(), accountHash(2), 0, block.Hash, election.SourceLive)
	e.Unlock()

	pair.BroadcastVote(context.Background(), e, time.Now())

	normal.mu.Lock()
	normalPending := len(normal.pending)
	normal.mu.Unlock()
	final.mu.Lock()
	finalPending := len(final.pending)
	final.mu.Unlock()

	require.Equal(0, normalPending)
	require.Equal(1, finalPending)
}
