package node

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election"
	"github.com/nanolabs/consensuscore/internal/voterouter"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/ledger/memledger"
	"github.com/nanolabs/consensuscore/nanoconfig"
	"github.com/nanolabs/consensuscore/repregistry"
	"github.com/nanolabs/consensuscore/transport/loopback"
	"github.com/nanolabs/consensuscore/wallet/memwallet"
)

// These tests exercise spec §8's testable-property scenarios end to
// end through the composed Node rather than through any single
// package, the way the teacher's consensus_test.go drives its engine
// through repeated Add/vote calls instead of unit-testing each stage.

func accHash(b byte) hash.Hash {
	var h hash.Hash
	h[0] = b
	return h
}

// newScenarioNode builds a Node with a low online-weight minimum (so a
// handful of fixture reps can clear quorum) and starts it running in
// the background; the returned cancel stops it.
func newScenarioNode(t *testing.T, onlineWeightMin uint64) (*Node, *memledger.Store, *repregistry.Registry, func()) {
	t.Helper()

	cfg := nanoconfig.Dev()
	cfg.OnlineWeightMinimum = onlineWeightMin

	w, err := memwallet.New(1)
	require.NoError(t, err)

	weights := repregistry.New(amount.FromUint64(1), true)
	store := memledger.New(map[hash.Hash]amount.Amount{})
	tr := loopback.New(nil)

	n := New(cfg, Deps{
		Store:     store,
		Transport: tr,
		Wallet:    w,
		Weights:   weights,
		Registry:  prometheus.NewRegistry(),
	}, Callbacks{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	return n, store, weights, func() {
		cancel()
		<-done
	}
}

func openBlock(account hash.Hash) ledger.Block {
	return ledger.Block{Hash: account, Account: account, Representative: account}
}

// S1: inactive-votes cache basic. A final vote for a not-yet-live
// block parks in VoteCache; publishing the block replays it and
// reaches Confirmed without any further votes.
func TestScenarioInactiveVoteCacheReplaysToConfirmation(t *testing.T) {
	n, _, weights, stop := newScenarioNode(t, 10)
	defer stop()

	rep := accHash(1)
	weights.SetWeight(rep, amount.FromUint64(50))

	blockHash := accHash(2)

	codes := n.Vote(context.Background(), voterouter.Vote{
		Representative: rep,
		Timestamp:      election.FinalTimestamp,
		Hashes:         []hash.Hash{blockHash},
	})
	require.Equal(t, election.VoteIndeterminate, codes[blockHash])
	require.Equal(t, 1, n.cache.Len())

	ok, e := n.SubmitBlock(context.Background(), openBlock(blockHash))
	require.True(t, ok)
	require.NotNil(t, e)

	require.Eventually(t, func() bool {
		return n.recent.Exists(blockHash)
	}, time.Second, time.Millisecond)

	require.Equal(t, float64(1), testutil.ToFloat64(n.stats.CacheReplays))
	require.Equal(t, 0, n.cache.Len())
}

// S2: fork replacement by weight. Ten forks fill an election to
// MaxCandidates with no votes; an eleventh unvoted fork is rejected
// outright, while a fork backed by cached final-vote weight evicts an
// existing non-winner candidate.
func TestScenarioForkReplacementByWeight(t *testing.T) {
	n, _, weights, stop := newScenarioNode(t, 1_000_000)
	defer stop()

	account := accHash(1)
	root := hash.QualifiedRoot{Root: account}

	genesis := openBlock(account)
	ok, e := n.SubmitBlock(context.Background(), genesis)
	require.True(t, ok)
	require.NotNil(t, e)

	for i := byte(1); i < election.MaxCandidates; i++ {
		fork := ledger.Block{Hash: accHash(0x10 + i), Account: account, Representative: account}
		require.True(t, n.active.Publish(fork))
	}
	info, ok := n.ElectionInfo(root)
	require.True(t, ok)
	require.Equal(t, election.MaxCandidates, info.VoteCount)

	// An 11th fork nobody has voted for is rejected at the candidate
	// cap: the existing candidate set is preserved untouched.
	unvoted := ledger.Block{Hash: accHash(0xFF), Account: account, Representative: account}
	require.False(t, n.active.Publish(unvoted))

	info, ok = n.ElectionInfo(root)
	require.True(t, ok)
	require.Equal(t, election.MaxCandidates, info.VoteCount)
	require.False(t, e.HasCandidate(unvoted.Hash))

	// A fork carrying a cached final vote from a principal rep is what
	// actually replaces: its inactive tally exceeds the (zero) minimum
	// tally of the untallied candidates.
	rep := accHash(0x9)
	weights.SetWeight(rep, amount.FromUint64(500))
	backed := ledger.Block{Hash: accHash(0xFE), Account: account, Representative: account}
	codes := n.Vote(context.Background(), voterouter.Vote{
		Representative: rep,
		Timestamp:      election.FinalTimestamp,
		Hashes:         []hash.Hash{backed.Hash},
	})
	require.Equal(t, election.VoteIndeterminate, codes[backed.Hash])

	require.True(t, n.active.Publish(backed))

	info, ok = n.ElectionInfo(root)
	require.True(t, ok)
	require.Equal(t, election.MaxCandidates, info.VoteCount)
	require.True(t, e.HasCandidate(backed.Hash))
	require.NotEqual(t, election.Confirmed, info.State)
}

// S3: a quorum-clearing but non-final tally must not confirm the
// election; it only confirms once a final vote also clears the delta.
func TestScenarioNonFinalQuorumDoesNotConfirm(t *testing.T) {
	n, _, weights, stop := newScenarioNode(t, 100)
	defer stop()

	rep := accHash(1)
	weights.SetWeight(rep, amount.FromUint64(1000))

	blockHash := accHash(2)
	ok, e := n.SubmitBlock(context.Background(), openBlock(blockHash))
	require.True(t, ok)
	require.NotNil(t, e)

	// Non-final vote: timestamp far below FinalTimestamp.
	n.Vote(context.Background(), voterouter.Vote{
		Representative: rep,
		Timestamp:      1,
		Hashes:         []hash.Hash{blockHash},
	})

	root := hash.QualifiedRoot{Root: blockHash}
	info, ok := n.ElectionInfo(root)
	require.True(t, ok)
	require.NotEqual(t, election.Confirmed, info.State)
	require.False(t, n.recent.Exists(blockHash))

	// Now cast the same rep's final vote: finalWeight clears delta too.
	n.Vote(context.Background(), voterouter.Vote{
		Representative: rep,
		Timestamp:      election.FinalTimestamp,
		Hashes:         []hash.Hash{blockHash},
	})
	require.Eventually(t, func() bool {
		return n.recent.Exists(blockHash)
	}, time.Second, time.Millisecond)
}

// S4: cementing a receive cements its dependency (the matching send)
// first, even when the receive is requested before any other
// cementation for that chain has happened.
func TestScenarioCementDependencyOrder(t *testing.T) {
	n, store, _, stop := newScenarioNode(t, 10)
	defer stop()

	sender := accHash(1)
	receiver := accHash(2)

	ctx := context.Background()
	genesis := openBlock(sender)

	// Use the ledger directly (bypassing the processor/election
	// pipeline) since S4 is about ConfirmingSet's dependency walk, not
	// election admission.
	mustProcess := func(b ledger.Block) {
		tx, err := store.BeginWrite(ctx)
		require.NoError(t, err)
		status, err := store.Process(tx, b)
		require.NoError(t, err)
		require.Equal(t, ledger.Progress, status)
		require.NoError(t, store.Commit(tx))
	}
	mustProcess(genesis)

	send1 := ledger.Block{Hash: accHash(0x11), Previous: genesis.Hash, Account: sender, Representative: sender, Link: receiver, LinkKind: ledger.LinkSend}
	mustProcess(send1)
	send2 := ledger.Block{Hash: accHash(0x12), Previous: send1.Hash, Account: sender, Representative: sender, Link: receiver, LinkKind: ledger.LinkSend}
	mustProcess(send2)

	open := ledger.Block{Hash: accHash(0x21), Account: receiver, Representative: receiver, Link: send1.Hash, LinkKind: ledger.LinkReceive}
	mustProcess(open)

	var order []hash.Hash
	sink := &testOrderSink{}
	n.confirmingSet.Subscribe(sink)

	// Request cementation for send2 first (same-chain, no dependency)
	// then for open (cross-chain: depends on send1). Regardless of
	// queue order, open's dependency walk must pull send1 in ahead of
	// it (spec §4.8 guarantee b).
	n.confirmingSet.Add(send2.Hash)
	n.confirmingSet.Add(open.Hash)

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.order) >= 4
	}, time.Second, time.Millisecond)

	sink.mu.Lock()
	order = append(order, sink.order...)
	sink.mu.Unlock()

	// genesis has never been cemented before, so send2's own chain walk
	// pulls it in too; the load-bearing property is that every
	// dependency precedes its dependent: genesis before send1 before
	// send2, and send1 (open's receive source) before open.
	require.Equal(t, []hash.Hash{genesis.Hash, send1.Hash, send2.Hash, open.Hash}, order)
}

type testOrderSink struct {
	mu    sync.Mutex
	order []hash.Hash
}

func (s *testOrderSink) OnCemented(block ledger.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, block.Hash)
}

func (s *testOrderSink) OnAlreadyCemented(h hash.Hash) {}

// S5: a replayed vote for an already-confirmed (and erased) root must
// resolve as Replay via RecentlyConfirmedCache, not Indeterminate.
func TestScenarioVoteReplayAfterRecentConfirmation(t *testing.T) {
	n, _, weights, stop := newScenarioNode(t, 10)
	defer stop()

	rep := accHash(1)
	weights.SetWeight(rep, amount.FromUint64(50))

	blockHash := accHash(2)
	ok, _ := n.SubmitBlock(context.Background(), openBlock(blockHash))
	require.True(t, ok)

	n.Vote(context.Background(), voterouter.Vote{
		Representative: rep,
		Timestamp:      election.FinalTimestamp,
		Hashes:         []hash.Hash{blockHash},
	})
	require.Eventually(t, func() bool {
		return n.recent.Exists(blockHash)
	}, time.Second, time.Millisecond)

	// Replaying the exact same vote now resolves via RecentlyConfirmed,
	// not via the (still-live, pre-erase) election or the cache.
	codes := n.Vote(context.Background(), voterouter.Vote{
		Representative: rep,
		Timestamp:      election.FinalTimestamp,
		Hashes:         []hash.Hash{blockHash},
	})
	require.Equal(t, election.VoteReplay, codes[blockHash])
}

// S6: vacancy accounting. Filling ActiveElections' Priority slots to
// capacity leaves zero vacancy; confirming and erasing one election
// frees exactly one slot.
func TestScenarioVacancyAccounting(t *testing.T) {
	cfg := nanoconfig.Dev()
	cfg.OnlineWeightMinimum = 10
	cfg.ActiveElections.Size = 3

	w, err := memwallet.New(1)
	require.NoError(t, err)
	weights := repregistry.New(amount.FromUint64(1), true)
	store := memledger.New(map[hash.Hash]amount.Amount{})
	tr := loopback.New(nil)

	n := New(cfg, Deps{Store: store, Transport: tr, Wallet: w, Weights: weights, Registry: prometheus.NewRegistry()}, Callbacks{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { n.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	require.Equal(t, 3, n.active.Vacancy(election.Priority))

	rep := accHash(0x9)
	weights.SetWeight(rep, amount.FromUint64(50))

	var lastBlock hash.Hash
	for i := byte(1); i <= 3; i++ {
		b := openBlock(accHash(i))
		ok, _ := n.SubmitBlock(context.Background(), b)
		require.True(t, ok)
		lastBlock = b.Hash
	}
	require.Equal(t, 0, n.active.Vacancy(election.Priority))

	// A fourth distinct root is refused admission while at capacity
	// (scheduler's Priority path respects vacancy; SubmitBlock's Manual
	// bypass still goes through Insert, which does not itself check
	// vacancy — so drive this via the Priority bucket directly).
	bucket := &bucketAdmitProbe{n: n}
	require.False(t, bucket.tryAdmit(accHash(0xAA)))

	// Confirm and let the request loop erase one election; the freed
	// slot becomes available vacancy again (spec §4.2 vacancy
	// accounting, guarantee that erase() is the only path that frees a
	// slot).
	n.Vote(context.Background(), voterouter.Vote{
		Representative: rep,
		Timestamp:      election.FinalTimestamp,
		Hashes:         []hash.Hash{lastBlock},
	})

	require.Eventually(t, func() bool {
		return n.active.Vacancy(election.Priority) > 0
	}, time.Second, 5*time.Millisecond)
}

// bucketAdmitProbe exercises ActiveElections.Insert directly the way
// the scheduler's Priority path does, to check vacancy without waiting
// on the scheduler's own drain loop.
type bucketAdmitProbe struct {
	n *Node
}

func (p *bucketAdmitProbe) tryAdmit(h hash.Hash) bool {
	if p.n.active.Vacancy(election.Priority) <= 0 {
		return false
	}
	ok, _ := p.n.active.Insert(context.Background(), openBlock(h), election.Priority)
	return ok
}
