// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node is the composition root: it wires every component in
// §2 together into one running process, the way the teacher's top
// level re-exports a single clean import surface over its consensus
// engine rather than making callers reach into individual packages.
//
// Grounded on original_source/rust/node/src/node.rs's top-level
// wiring order (ledger/store first, then the election pipeline, then
// the periodic loops, started last) and on the teacher's own
// single-entrypoint composition pattern.
package node

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/collections/quorum"
	"github.com/nanolabs/consensuscore/internal/activeelections"
	"github.com/nanolabs/consensuscore/internal/blockprocessor"
	"github.com/nanolabs/consensuscore/internal/confirmingset"
	"github.com/nanolabs/consensuscore/internal/election"
	"github.com/nanolabs/consensuscore/internal/election/recentcache"
	"github.com/nanolabs/consensuscore/internal/election/votecache"
	"github.com/nanolabs/consensuscore/internal/election/votehistory"
	"github.com/nanolabs/consensuscore/internal/scheduler"
	"github.com/nanolabs/consensuscore/internal/solicitor"
	"github.com/nanolabs/consensuscore/internal/voterouter"
	"github.com/nanolabs/consensuscore/internal/votegenerator"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/nanoconfig"
	"github.com/nanolabs/consensuscore/nanolog"
	"github.com/nanolabs/consensuscore/nanometrics"
	"github.com/nanolabs/consensuscore/repregistry"
	"github.com/nanolabs/consensuscore/transport"
	"github.com/nanolabs/consensuscore/wallet"
)

// Callbacks bundles the §6 "Callbacks exposed by the core" as
// optional hooks; nil fields are simply not invoked.
type Callbacks struct {
	OnElectionStarted func(h hash.Hash)
	OnElectionStopped func(h hash.Hash)
	OnElectionEnded   func(status election.State, winner ledger.Block, finalWeight amount.Amount, tally map[hash.Hash]amount.Amount)
	OnBlockCemented   func(block ledger.Block)
	OnBlockAlreadyCemented func(h hash.Hash)
}

// Deps are the §6 external collaborators the core does not implement
// itself: the ledger store, transport, wallet and representative
// weight registry.
type Deps struct {
	Store     ledger.Store
	Transport transport.Transport
	Wallet    wallet.Wallet
	Weights   *repregistry.Registry

	// Registry is the prometheus registerer metrics attach to; defaults
	// to a fresh prometheus.NewRegistry() if nil so tests never collide
	// with the process-wide default registry.
	Registry prometheus.Registerer

	Log nanolog.Logger
}

// Node wires together every §2 component and exposes the handful of
// entrypoints external callers (RPC, wallet, bootstrap — all out of
// scope per §1) need: submitting a block and reading election state.
type Node struct {
	cfg nanoconfig.Config
	log nanolog.Logger

	store     ledger.Store
	transport transport.Transport
	wallet    wallet.Wallet
	weights   *repregistry.Registry
	delta     *quorum.Tracker

	recent  *recentcache.Cache
	cache   *votecache.Cache
	history *votehistory.History
	router  *voterouter.Router
	active  *activeelections.Registry

	processor     *blockprocessor.Processor
	confirmingSet *confirmingset.Set
	sched         *scheduler.Scheduler
	votegen       *votegenerator.Pair

	stats *nanometrics.Stats
	cb    Callbacks

	runOnce sync.Once
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New wires a Node from cfg and its external collaborators. It does
// not start any goroutine; call Run for that.
func New(cfg nanoconfig.Config, deps Deps, cb Callbacks) *Node {
	log := deps.Log
	if log == nil {
		log = nanolog.NoOp()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	stats := nanometrics.New(reg)

	n := &Node{
		cfg:       cfg,
		log:       log,
		store:     deps.Store,
		transport: deps.Transport,
		wallet:    deps.Wallet,
		weights:   deps.Weights,
		stats:     stats,
		cb:        cb,
	}

	n.delta = quorum.NewTracker(amount.FromUint64(cfg.OnlineWeightMinimum))
	n.recent = recentcache.New(cfg.ActiveElections.ConfirmationCacheSize)
	n.cache = votecache.New(cfg.VoteCache.MaxSize, cfg.VoteCache.MaxVoters)
	n.history = votehistory.New(cfg.ActiveElections.ConfirmationHistSize)
	n.router = voterouter.New(n.recent, n.cache, n.weights, stats, log)
	n.router.OnVoteProcessed(n.onVoteProcessed)

	n.confirmingSet = confirmingset.New(n.store, 1024, stats, log)
	n.confirmingSet.Subscribe(n)

	normal := votegenerator.New(false, 0, cfg.VoteGeneratorDelay, n.wallet, n.transport, n.router, n.history, log)
	final := votegenerator.New(true, 0, cfg.VoteGeneratorDelay, n.wallet, n.transport, n.router, n.history, log)
	n.votegen = votegenerator.NewPair(normal, final, 0)

	n.active = activeelections.New(activeelections.Params{
		Config: activeelections.Config{
			Size:              cfg.ActiveElections.Size,
			HintedPercent:     cfg.ActiveElections.HintedLimitPercentage,
			OptimisticPercent: cfg.ActiveElections.OptimisticLimitPct,
			LoopInterval:      cfg.Network_.AecLoopInterval,
			BaseLatency:       cfg.BaseLatency(),
		},
		Weights:  n.weights,
		Delta:    n.delta,
		Recent:   n.recent,
		Cache:    n.cache,
		History:  n.history,
		Router:   n.router,
		Cementer: n.confirmingSet,
		NewSolicitor: func(principals []hash.Hash) activeelections.Solicitor {
			return solicitor.New(principals, n.transport, cfg.BaseLatency(), log)
		},
		VoteBroadcaster: n.votegen,
		ForceProcess:    n.forceProcess,
		Principals:      n.weights.Principals,
		EnqueueFinalVote:  n.votegen.Final.Add,
		EnqueueNormalVote: n.votegen.Normal.Add,
		OnStarted: func(h hash.Hash) {
			n.sched.Notify()
			if cb.OnElectionStarted != nil {
				cb.OnElectionStarted(h)
			}
		},
		OnStopped: func(h hash.Hash) {
			n.sched.Notify()
			if cb.OnElectionStopped != nil {
				cb.OnElectionStopped(h)
			}
		},
		OnEnded: func(status election.State, winner ledger.Block, finalWeight amount.Amount, tally map[hash.Hash]amount.Amount) {
			if cb.OnElectionEnded != nil {
				cb.OnElectionEnded(status, winner, finalWeight, tally)
			}
		},
		Stats: stats,
		Log:   log,
	})

	bucket := &scheduler.Bucket{MaxBlocks: 4096, ReservedElections: cfg.ActiveElections.Size}
	n.sched = scheduler.New(n.active, []*scheduler.Bucket{bucket}, hintingThresholdPercent, gapThreshold, n.weights.TotalOnlineWeight, n.votesOnCached, log)

	n.processor = blockprocessor.New(blockprocessor.DefaultConfig(), n.store, n.history, n.active.EraseRoot, stats, log)
	n.processor.Subscribe(n)

	return n
}

// hintingThresholdPercent and gapThreshold are the spec §4.9
// defaults this in-memory core ships with; no config option names
// them explicitly in §6, so these are the SPEC_FULL.md-documented
// hinted/optimistic scheduler constants.
const (
	hintingThresholdPercent = 10
	gapThreshold            = 64
)

// votesOnCached sums VoteCache weight for h, used by the hinted
// scheduler to decide whether cached interest clears the hinting
// threshold (spec §4.9).
func (n *Node) votesOnCached(h hash.Hash) amount.Amount {
	total := amount.Zero
	for _, e := range n.cache.Find(h) {
		total = total.Add(e.Weight)
	}
	return total
}

// forceProcess is Election.Deps.ForceProcess (spec §4.6 step 4b): the
// tally picked a new winner that isn't the currently-processed head,
// so resubmit it through BlockProcessor with source = Forced.
func (n *Node) forceProcess(ctx context.Context, block ledger.Block) {
	n.processor.Add(block, blockprocessor.Forced)
}

// Run starts every dedicated goroutine (spec §5: BlockProcessor
// worker, ConfirmingSet worker, two VoteGenerator workers,
// ActiveElections request loop, ElectionSchedulers loop) and blocks
// until ctx is canceled.
func (n *Node) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	runners := []func(context.Context){
		n.processor.Run,
		n.confirmingSet.Run,
		n.active.Run,
		n.sched.Run,
		n.votegen.Run,
	}
	for _, r := range runners {
		n.wg.Add(1)
		go func(run func(context.Context)) {
			defer n.wg.Done()
			run(ctx)
		}(r)
	}
	<-ctx.Done()
	n.wg.Wait()
}

// Stop shuts the node down. It marks ActiveElections stopped first so
// in-flight Insert calls fail closed, then cancels the one context
// every loop shares, so all goroutines stop together; there is no
// fixed stop order between components.
func (n *Node) Stop() {
	n.runOnce.Do(func() {
		n.active.Stop()
		if n.cancel != nil {
			n.cancel()
		}
	})
}

// SubmitBlock is the Manual admission entrypoint (spec §4.9): local
// wallet sends and RPC-originated blocks enter here, bypassing the
// scheduler vacancy checks.
func (n *Node) SubmitBlock(ctx context.Context, block ledger.Block) (bool, *election.Election) {
	status := n.processor.ProcessActive(ctx, block)
	if status != ledger.Progress && status != ledger.Fork {
		return false, nil
	}
	if status == ledger.Fork {
		n.active.Publish(block)
		return false, nil
	}
	return n.sched.Manual(ctx, block)
}

// Vote is the inbound ConfirmAck entrypoint (spec §6: "ConfirmAck ->
// VoteRouter").
func (n *Node) Vote(ctx context.Context, v voterouter.Vote) map[hash.Hash]election.VoteCode {
	return n.router.Vote(ctx, v, election.SourceLive)
}

// ElectionInfo exposes a read-only snapshot for RPC/diagnostics (spec
// §6, SPEC_FULL.md supplemented feature 3).
func (n *Node) ElectionInfo(root hash.QualifiedRoot) (activeelections.Info, bool) {
	return n.active.Info(root)
}

// ForceConfirm manually confirms a live election (SPEC_FULL.md
// supplemented feature 2).
func (n *Node) ForceConfirm(ctx context.Context, root hash.QualifiedRoot) bool {
	return n.active.ForceConfirm(ctx, root)
}

func (n *Node) onVoteProcessed(ctx context.Context, v voterouter.Vote, source election.Source, results map[hash.Hash]election.VoteCode) {
	for h, code := range results {
		if code != election.VoteIndeterminate {
			continue
		}
		// An indeterminate vote on a hash with enough cached weight is
		// the Hinted scheduler's admission signal (spec §4.9) — but
		// hinting can only activate a block the ledger already holds; a
		// vote for an unknown hash stays parked in VoteCache until the
		// block itself arrives.
		tx, err := n.store.BeginRead(ctx)
		if err != nil {
			continue
		}
		block, ok := n.store.GetBlock(tx, h)
		n.store.Abort(tx)
		if ok {
			n.sched.PushHinted(block)
		}
	}
}

// OnProgress implements blockprocessor.Observer: a block that
// advanced its account chain becomes a Priority scheduling candidate
// (spec §2.9 control-flow: "BlockProcessor ... notifies ActiveElections
// ... The schedulers choose which roots become elections").
func (n *Node) OnProgress(block ledger.Block) {
	n.sched.PushPriority(0, block)
}

// OnFork implements blockprocessor.Observer: a conflicting block on an
// already-live root enters the fork-arrival publish path directly
// (spec §4.2 "Publish (fork arrival) path").
func (n *Node) OnFork(block ledger.Block) {
	n.active.Publish(block)
}

// OnCemented implements confirmingset.Observer (spec §6
// on_block_cemented): cemented accounts' dependents become eligible
// for scheduling, and external callers are notified.
func (n *Node) OnCemented(block ledger.Block) {
	n.sched.Notify()
	if n.cb.OnBlockCemented != nil {
		n.cb.OnBlockCemented(block)
	}
}

// OnAlreadyCemented implements confirmingset.Observer (spec §6
// on_block_already_cemented).
func (n *Node) OnAlreadyCemented(h hash.Hash) {
	if n.cb.OnBlockAlreadyCemented != nil {
		n.cb.OnBlockAlreadyCemented(h)
	}
}

// Stats exposes the process-wide counters for diagnostics.
func (n *Node) Stats() *nanometrics.Stats { return n.stats }

// Weights exposes the representative weight registry, e.g. so a
// rep-crawler (out of scope) can push weight updates and so tests can
// seed fixtures.
func (n *Node) Weights() *repregistry.Registry { return n.weights }

// Delta exposes the online-weight tracker so a rep-crawler (out of
// scope) can feed Observe() samples.
func (n *Node) Delta() *quorum.Tracker { return n.delta }
