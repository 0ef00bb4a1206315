// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package activeelections implements ActiveElections (spec §2.7,
// §4.2): the registry of live elections, its two indices, vacancy
// accounting, admission, fork-replacement-by-weight, trim, and the
// background request loop.
//
// Grounded on the teacher's quorum.Dynamic (quorum/dynamic.go: a
// mutex-guarded registry driven by a periodic recompute loop) combined
// with validators.Manager's dual-index (by-node-id, by-subnet) lookup
// shape (validators/validators.go).
package activeelections

import (
	"context"
	"sync"
	"time"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election"
	"github.com/nanolabs/consensuscore/internal/election/recentcache"
	"github.com/nanolabs/consensuscore/internal/election/votecache"
	"github.com/nanolabs/consensuscore/internal/election/votehistory"
	"github.com/nanolabs/consensuscore/internal/voterouter"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/nanolog"
	"github.com/nanolabs/consensuscore/nanometrics"
)

// Config is the subset of nanoconfig's active_elections/network_timing
// options this package consumes (spec §4.2, §6).
type Config struct {
	Size              int
	HintedPercent     int
	OptimisticPercent int
	LoopInterval      time.Duration
	BaseLatency       time.Duration
}

// Solicitor is the per-round collaborator ActiveElections builds at the
// top of each request-loop iteration (spec §4.11). Satisfied by
// *solicitor.Solicitor.
type Solicitor interface {
	Add(e *election.Election)
	Broadcast(e *election.Election)
	Flush()
}

// VoteBroadcaster triggers broadcast_vote for an Active election (spec
// §4.4). Satisfied by the node's composed normal/final
// votegenerator.Generator pair.
type VoteBroadcaster interface {
	BroadcastVote(ctx context.Context, e *election.Election, now time.Time)
}

// Cementer accepts a confirmed winner for cementation (spec §4.7 step
// 4). Satisfied by *confirmingset.Set.
type Cementer interface {
	Add(h hash.Hash)
}

// Params bundles every collaborator Registry needs. Weights, Delta,
// Recent, Cache, History and Router are required; every other field
// may be left nil, including the OnStarted/OnStopped/OnEnded observer
// hooks (spec §6 "Callbacks exposed by the core").
type Params struct {
	Config Config

	Weights election.WeightLookup
	Delta   election.DeltaSource

	Recent     *recentcache.Cache
	Cache      *votecache.Cache
	History    *votehistory.History
	Router     *voterouter.Router
	Cementer   Cementer
	NewSolicitor func(principals []hash.Hash) Solicitor
	VoteBroadcaster VoteBroadcaster

	// ForceProcess re-submits a block through BlockProcessor with
	// source = Forced when apply_vote picks a new winner (spec §4.6
	// step 4b).
	ForceProcess func(ctx context.Context, block ledger.Block)

	// Principals returns the current principal-rep set, used to seed
	// each request-loop round's Solicitor (spec §4.2 step 2).
	Principals func() []hash.Hash

	EnqueueFinalVote  func(root hash.QualifiedRoot, winner hash.Hash)
	EnqueueNormalVote func(root hash.QualifiedRoot, winner hash.Hash)

	OnStarted func(h hash.Hash)
	OnStopped func(h hash.Hash)
	// OnEnded reports the terminal status of an election (spec §6
	// on_election_ended). The full signature spec.md describes also
	// carries account-classification fields (is_state_send,
	// is_state_epoch) that depend on ledger analytics this in-memory
	// core doesn't model; callers that need them derive them from the
	// winning Block itself, which OnEnded passes through.
	OnEnded func(status election.State, winner ledger.Block, finalWeight amount.Amount, tally map[hash.Hash]amount.Amount)

	Stats *nanometrics.Stats
	Log   nanolog.Logger
}

// Registry is ActiveElections.
type Registry struct {
	mu sync.Mutex

	cfg Config

	byRoot      map[hash.QualifiedRoot]*election.Election
	byHash      map[hash.Hash]*election.Election
	insertOrder []hash.QualifiedRoot
	counts      map[election.Behavior]int
	stopped     bool

	// winners has its own mutex because onConfirmed writes it while
	// holding the confirming election's lock (rank 2, spec §4.7 step
	// 3); taking the registry mutex (rank 1) there would invert the
	// spec §5 lock order against erase(), which holds rank 1 and then
	// takes rank 2.
	winnersMu sync.Mutex
	winners   map[hash.Hash]*election.Election

	recent   *recentcache.Cache
	cache    *votecache.Cache
	history  *votehistory.History
	router   *voterouter.Router
	cementer Cementer

	weights election.WeightLookup
	delta   election.DeltaSource

	newSolicitor    func([]hash.Hash) Solicitor
	voteBroadcaster VoteBroadcaster
	forceProcess    func(context.Context, ledger.Block)
	principals      func() []hash.Hash

	enqueueFinal  func(hash.QualifiedRoot, hash.Hash)
	enqueueNormal func(hash.QualifiedRoot, hash.Hash)

	onStarted func(hash.Hash)
	onStopped func(hash.Hash)
	onEnded   func(election.State, ledger.Block, amount.Amount, map[hash.Hash]amount.Amount)

	stats *nanometrics.Stats
	log   nanolog.Logger
}

// New creates a Registry. It does not start the request loop; call Run
// in its own goroutine once the rest of the node is wired.
func New(p Params) *Registry {
	if p.Config.BaseLatency == 0 {
		p.Config.BaseLatency = time.Second
	}
	if p.Config.LoopInterval == 0 {
		p.Config.LoopInterval = time.Second
	}
	r := &Registry{
		cfg:             p.Config,
		byRoot:          make(map[hash.QualifiedRoot]*election.Election),
		byHash:          make(map[hash.Hash]*election.Election),
		winners:         make(map[hash.Hash]*election.Election),
		counts:          make(map[election.Behavior]int),
		recent:          p.Recent,
		cache:           p.Cache,
		history:         p.History,
		router:          p.Router,
		cementer:        p.Cementer,
		weights:         p.Weights,
		delta:           p.Delta,
		newSolicitor:    p.NewSolicitor,
		voteBroadcaster: p.VoteBroadcaster,
		forceProcess:    p.ForceProcess,
		principals:      p.Principals,
		enqueueFinal:    p.EnqueueFinalVote,
		enqueueNormal:   p.EnqueueNormalVote,
		onStarted:       p.OnStarted,
		onStopped:       p.OnStopped,
		onEnded:         p.OnEnded,
		stats:           p.Stats,
		log:             p.Log,
	}
	if r.log == nil {
		r.log = nanolog.NoOp()
	}
	return r
}

func (r *Registry) electionDeps() *election.Deps {
	return &election.Deps{
		Weights:           r.weights,
		Delta:             r.delta,
		ForceProcess:      r.forceProcess,
		EraseVoteHistory:  r.history.EraseHash,
		EnqueueFinalVote:  r.enqueueFinal,
		EnqueueNormalVote: r.enqueueNormal,
		OnConfirmed:       r.onConfirmed,
	}
}

// Insert is ActiveElections.insert (spec §4.2): admits a new Passive
// election for block under the given behavior.
func (r *Registry) Insert(ctx context.Context, block ledger.Block, behavior election.Behavior) (bool, *election.Election) {
	root := block.QualifiedRoot()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return false, nil
	}
	if existing, ok := r.byRoot[root]; ok {
		r.mu.Unlock()
		return false, existing
	}
	if r.recent.RootExists(root) {
		r.mu.Unlock()
		return false, nil
	}

	e := election.New(root, block, behavior, time.Now(), r.electionDeps())
	r.byRoot[root] = e
	r.byHash[block.Hash] = e
	r.counts[behavior]++
	r.insertOrder = append(r.insertOrder, root)
	r.mu.Unlock()

	r.router.Register(block.Hash, e)
	r.replayCached(ctx, block.Hash)

	if r.stats != nil {
		r.stats.ElectionsStarted.WithLabelValues(behavior.String()).Inc()
		r.stats.LiveElections.Inc()
	}
	if r.onStarted != nil {
		r.onStarted(block.Hash)
	}
	return true, e
}

// replayCached drains VoteCache entries for h and replays them through
// the router (spec §4.2 step 6, §4.5).
func (r *Registry) replayCached(ctx context.Context, h hash.Hash) {
	entries := r.cache.Find(h)
	if len(entries) == 0 {
		return
	}
	for _, entry := range entries {
		r.router.Vote(ctx, voterouter.Vote{
			Representative: entry.Voter,
			Timestamp:      entry.Timestamp,
			Hashes:         []hash.Hash{h},
		}, election.SourceCache)
		if r.stats != nil {
			r.stats.CacheReplays.Inc()
		}
	}
	r.cache.Remove(h)
}

// Vacancy returns the remaining admission room for a behavior class
// (spec §4.2).
func (r *Registry) Vacancy(b election.Behavior) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch b {
	case election.Priority:
		return r.cfg.Size - len(r.byRoot)
	case election.Hinted:
		return r.cfg.Size*r.cfg.HintedPercent/100 - r.counts[election.Hinted]
	case election.Optimistic:
		return r.cfg.Size*r.cfg.OptimisticPercent/100 - r.counts[election.Optimistic]
	default:
		return 0
	}
}

// Count returns the number of live elections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byRoot)
}

// ByRoot looks up the live election for a qualified root.
func (r *Registry) ByRoot(root hash.QualifiedRoot) (*election.Election, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byRoot[root]
	return e, ok
}

// ByHash looks up the live election indexing a candidate hash.
func (r *Registry) ByHash(h hash.Hash) (*election.Election, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byHash[h]
	return e, ok
}

// Winner returns the election that confirmed h as a winner, if any
// (spec §4.7 step 3 "winners map").
func (r *Registry) Winner(h hash.Hash) (*election.Election, bool) {
	r.winnersMu.Lock()
	defer r.winnersMu.Unlock()
	e, ok := r.winners[h]
	return e, ok
}

// onConfirmed is Election.Deps.OnConfirmed (spec §4.7), invoked under
// the election's own lock the first time it reaches Confirmed.
func (r *Registry) onConfirmed(ctx context.Context, e *election.Election, winner hash.Hash, finalWeight amount.Amount, tally map[hash.Hash]amount.Amount) {
	r.recent.Put(e.Root(), winner)

	r.winnersMu.Lock()
	r.winners[winner] = e
	r.winnersMu.Unlock()

	if r.cementer != nil {
		r.cementer.Add(winner)
	}
	if r.stats != nil {
		r.stats.ElectionsConfirmed.WithLabelValues(e.Behavior().String()).Inc()
	}
	if r.onEnded != nil {
		block, _ := e.Candidate(winner)
		r.onEnded(election.Confirmed, block, finalWeight, tally)
	}
}

// EraseRoot forcibly removes a live election for root, bypassing the
// normal Confirmed/ExpiredUnconfirmed termination path. Used by
// BlockProcessor's blocks_rolled_back handling (spec §4.1: "erase
// non-initial rolled-back roots from ActiveElections").
func (r *Registry) EraseRoot(root hash.QualifiedRoot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.erase(root)
}

// Stop marks the registry stopped: Insert admits nothing further and
// every later request-loop tick returns without touching the live
// elections, which are left as they are.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

// erase removes a terminal election from both indices (spec §4.2 step
// 5). Caller holds r.mu.
func (r *Registry) erase(root hash.QualifiedRoot) {
	e, ok := r.byRoot[root]
	if !ok {
		return
	}
	delete(r.byRoot, root)
	r.counts[e.Behavior()]--

	e.Lock()
	candidates := e.Candidates()
	winner := e.Winner()
	state := e.State()
	e.Unlock()

	for _, c := range candidates {
		delete(r.byHash, c.Hash)
		r.router.Unregister(c.Hash)
	}
	// The winners map only needs to bridge the gap between onConfirmed
	// firing and this cleanup running (spec §4.7 step 3); once erased,
	// RecentlyConfirmed is the durable record of the (root, winner) pair.
	r.winnersMu.Lock()
	delete(r.winners, winner)
	r.winnersMu.Unlock()

	if r.stats != nil {
		r.stats.LiveElections.Dec()
		if state == election.ExpiredUnconfirmed {
			r.stats.ElectionsExpired.WithLabelValues(e.Behavior().String()).Inc()
		}
	}
	if r.onStopped != nil {
		r.onStopped(winner)
	}
}

// trim drops the oldest elections by insertion order once the registry
// exceeds size*1.25, and keeps dropping until it is back under size
// (spec §4.2 "Trim policy").
func (r *Registry) trim() {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit := r.cfg.Size + r.cfg.Size/4
	if len(r.byRoot) > limit {
		for len(r.byRoot) > r.cfg.Size && len(r.insertOrder) > 0 {
			root := r.insertOrder[0]
			r.insertOrder = r.insertOrder[1:]
			if _, ok := r.byRoot[root]; ok {
				r.erase(root)
			}
		}
	}
	// Compact insertOrder of roots already erased by the request loop.
	if len(r.insertOrder) > 2*len(r.byRoot)+16 {
		fresh := make([]hash.QualifiedRoot, 0, len(r.byRoot))
		for _, root := range r.insertOrder {
			if _, ok := r.byRoot[root]; ok {
				fresh = append(fresh, root)
			}
		}
		r.insertOrder = fresh
	}
}
