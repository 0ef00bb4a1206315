// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package activeelections

import (
	"time"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election"
	"github.com/nanolabs/consensuscore/ledger"
)

// Publish is the fork-arrival path (spec §4.2 "Publish (fork arrival)
// path"): block's root matches a live election; add it as a new
// candidate, evicting by weight if the election is already at its
// candidate cap.
//
// Registry's mutex (lock rank 1, spec §5) is never held together with
// the election's mutex (rank 2) here: the election-local decisions
// (evict/add) run entirely under e's lock, then e is unlocked before
// byHash/router are touched, so this never acquires rank 1 while
// holding rank 2.
func (r *Registry) Publish(block ledger.Block) bool {
	e, ok := r.ByRoot(block.QualifiedRoot())
	if !ok {
		return false
	}

	e.Lock()

	switch e.State() {
	case election.Confirmed, election.ExpiredConfirmed, election.ExpiredUnconfirmed:
		e.Unlock()
		return false
	}

	if e.HasCandidate(block.Hash) {
		if e.Winner() == block.Hash {
			e.SetLastBlockBroadcastAt(time.Time{})
		}
		e.Unlock()
		return true
	}

	var evicted hash.Hash
	didEvict := false
	if e.CandidateCount() >= election.MaxCandidates {
		var ok bool
		evicted, ok = r.forkReplace(e, block)
		if !ok {
			e.Unlock()
			return false
		}
		didEvict = true
	}

	e.AddCandidate(block)
	if e.Winner() == block.Hash {
		e.SetLastBlockBroadcastAt(time.Time{})
	}
	e.Unlock()

	// Index the new candidate hash (and drop the evicted one, if any)
	// immediately, not deferred to election-erase time: VoteRouter must
	// be able to route a direct vote for this hash the instant it
	// becomes a candidate (spec §4.3, invariant 3).
	if didEvict {
		r.mu.Lock()
		delete(r.byHash, evicted)
		r.mu.Unlock()
		r.router.Unregister(evicted)
	}
	r.mu.Lock()
	r.byHash[block.Hash] = e
	r.mu.Unlock()
	r.router.Register(block.Hash, e)

	return true
}

// forkReplace implements fork-replacement-by-weight (spec §4.2): sort
// existing candidates by last_tally descending, evict an untallied
// candidate if room allows, else evict the minimum-tallied non-winner
// candidate when the new block's cached inactive weight exceeds it.
// A fork with no cached weight behind it is rejected outright. At
// most one eviction per call. Caller holds e's lock; forkReplace
// itself never touches Registry's mutex (rank 1) or the router, since
// that would acquire rank 1/3 while still holding e's rank-2 lock —
// the caller unregisters the returned hash after releasing e's lock.
func (r *Registry) forkReplace(e *election.Election, block ledger.Block) (evicted hash.Hash, ok bool) {
	var inactiveTally amount.Amount
	for _, v := range r.cache.Find(block.Hash) {
		inactiveTally = inactiveTally.Add(v.Weight)
	}
	// A fork nobody has voted for displaces nothing: at the candidate
	// cap it is simply rejected, keeping the existing candidate set.
	if inactiveTally.IsZero() {
		return hash.Hash{}, false
	}

	tally := e.Tally()
	for _, h := range e.SortedCandidatesByTally() {
		if h == e.Winner() {
			continue
		}
		if _, tallied := tally[h]; !tallied {
			e.EvictCandidate(h)
			r.countEviction()
			return h, true
		}
	}

	minHash, minWeight, found := e.MinTally()
	if found && inactiveTally.GT(minWeight) {
		e.EvictCandidate(minHash)
		r.countEviction()
		return minHash, true
	}
	return hash.Hash{}, false
}

func (r *Registry) countEviction() {
	if r.stats != nil {
		r.stats.ForkEvictions.Inc()
	}
}
