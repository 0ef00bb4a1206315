// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package voterouter implements VoteRouter (spec §2.5, §4.3): the
// single by_hash map from block hash to live election, multiplexing
// every inbound vote across thousands of elections.
//
// Grounded on the teacher's poll.Set (poll/poll.go: map[requestID]Poll
// dispatch, deleting finished polls) generalized from a request-id key
// to a block-hash key, and from "one poll per request" to "one
// election indexes many candidate hashes".
package voterouter

import (
	"context"
	"sync"
	"time"

	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/collections/set"
	"github.com/nanolabs/consensuscore/internal/election"
	"github.com/nanolabs/consensuscore/internal/election/recentcache"
	"github.com/nanolabs/consensuscore/internal/election/votecache"
	"github.com/nanolabs/consensuscore/nanolog"
	"github.com/nanolabs/consensuscore/nanometrics"
)

// Vote is an inbound ConfirmAck (spec §6): one representative's
// signature over a batch of hashes it is voting for in one shot.
type Vote struct {
	Representative hash.Hash
	Timestamp      uint64
	Hashes         []hash.Hash
}

// Router is VoteRouter. Registrations are only ever made by
// ActiveElections (spec §4.3), after it has released its registry
// lock; only erase unregisters while still holding it. Router
// itself only guards its own map (lock ordering, spec §5: VoteRouter's
// mutex is acquired after ActiveElections' and after the per-election
// mutex, never before).
type Router struct {
	mu     sync.RWMutex
	byHash map[hash.Hash]*election.Election

	recent  *recentcache.Cache
	cache   *votecache.Cache
	weights election.WeightLookup
	stats   *nanometrics.Stats
	log     nanolog.Logger

	onVoteProcessed func(ctx context.Context, vote Vote, source election.Source, results map[hash.Hash]election.VoteCode)
}

// New creates a Router.
func New(recent *recentcache.Cache, cache *votecache.Cache, weights election.WeightLookup, stats *nanometrics.Stats, log nanolog.Logger) *Router {
	return &Router{
		byHash:  make(map[hash.Hash]*election.Election),
		recent:  recent,
		cache:   cache,
		weights: weights,
		stats:   stats,
		log:     log,
	}
}

// OnVoteProcessed registers the callback fired once per Vote call
// (spec §4.3 step "Fire on_vote_processed").
func (r *Router) OnVoteProcessed(f func(ctx context.Context, vote Vote, source election.Source, results map[hash.Hash]election.VoteCode)) {
	r.onVoteProcessed = f
}

// Register indexes hash -> e. Called only by ActiveElections.
func (r *Router) Register(h hash.Hash, e *election.Election) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[h] = e
}

// Unregister removes the index entry for hash. Called only by
// ActiveElections: by erase, in the same critical section that drops
// the election (spec §3 "Ownership"), and by Publish for a candidate
// evicted by fork replacement.
func (r *Router) Unregister(h hash.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHash, h)
}

// Vote applies an inbound vote across every hash it covers (spec
// §4.3). Hashes are deduplicated before processing.
func (r *Router) Vote(ctx context.Context, v Vote, source election.Source) map[hash.Hash]election.VoteCode {
	results := make(map[hash.Hash]election.VoteCode, len(v.Hashes))
	seen := make(set.Set[hash.Hash], len(v.Hashes))
	now := time.Now()

	for _, h := range v.Hashes {
		if seen.Contains(h) {
			continue
		}
		seen.Add(h)
		results[h] = r.voteOne(ctx, v, h, source, now)
	}

	if r.onVoteProcessed != nil {
		r.onVoteProcessed(ctx, v, source, results)
	}
	return results
}

func (r *Router) voteOne(ctx context.Context, v Vote, h hash.Hash, source election.Source, now time.Time) election.VoteCode {
	r.mu.RLock()
	e, live := r.byHash[h]
	r.mu.RUnlock()

	var code election.VoteCode
	switch {
	case live:
		e.Lock()
		code = e.ApplyVote(ctx, v.Representative, v.Timestamp, h, source)
		e.Unlock()
	case r.recent.Exists(h):
		// RecentlyConfirmed indexes by winning hash (spec §4.10's
		// by_hash index), which is exactly what this lookup needs
		// (spec §4.3: "RecentlyConfirmed contains any (root, hash)
		// matching").
		code = election.VoteReplay
	default:
		code = election.VoteIndeterminate
		w := r.weights.Weight(v.Representative)
		r.cache.Insert(v.Representative, w, v.Timestamp, []hash.Hash{h}, now)
	}

	if r.stats != nil {
		r.stats.VotesProcessed.WithLabelValues(code.String()).Inc()
	}
	return code
}
