// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"sync"
	"time"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/bag"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/ledger"
)

// Election is the state machine for one contested qualified root
// (spec §2.4, §3). The mutex is exported via Lock/Unlock because
// callers (VoteRouter, ActiveElections) must hold it across a
// read-decide-mutate sequence — e.g. fork-replacement-by-weight reads
// last_tally, decides whether to evict, then mutates candidates, all
// as one critical section (spec §4.2).
type Election struct {
	mu sync.Mutex

	root       hash.QualifiedRoot
	candidates map[hash.Hash]ledger.Block
	lastVotes  map[hash.Hash]VoteRecord // rep -> vote
	lastTally  map[hash.Hash]amount.Amount
	finalWeight amount.Amount
	winner     hash.Hash

	state    State
	behavior Behavior

	startedAt            time.Time
	lastVoteAt           time.Time
	lastBlockBroadcastAt time.Time
	lastBroadcastWinner  hash.Hash
	lastConfirmReqAt     time.Time

	confirmedOnce bool
	deps          *Deps
}

// New creates a Passive election seeded with one candidate block,
// winner = block.Hash (spec §4.2 step 4).
func New(root hash.QualifiedRoot, initial ledger.Block, behavior Behavior, now time.Time, deps *Deps) *Election {
	return &Election{
		root:       root,
		candidates: map[hash.Hash]ledger.Block{initial.Hash: initial},
		lastVotes:  make(map[hash.Hash]VoteRecord),
		lastTally:  make(map[hash.Hash]amount.Amount),
		winner:     initial.Hash,
		state:      Passive,
		behavior:   behavior,
		startedAt:  now,
		deps:       deps,
	}
}

func (e *Election) Lock()   { e.mu.Lock() }
func (e *Election) Unlock() { e.mu.Unlock() }

// Root returns the election's immutable key.
func (e *Election) Root() hash.QualifiedRoot { return e.root }

// Behavior returns the admission class this election was started under.
func (e *Election) Behavior() Behavior { return e.behavior }

// State returns the current lifecycle stage. Callers needing a
// consistent read alongside other fields should hold the lock.
func (e *Election) State() State { return e.state }

// Winner returns the currently leading candidate hash.
func (e *Election) Winner() hash.Hash { return e.winner }

// StartedAt returns the election's admission time.
func (e *Election) StartedAt() time.Time { return e.startedAt }

// LastVoteAt, LastBlockBroadcastAt, LastConfirmReqAt back the
// broadcast/request-loop suppression windows (spec §4.4, §4.11).
func (e *Election) LastVoteAt() time.Time           { return e.lastVoteAt }
func (e *Election) LastBlockBroadcastAt() time.Time { return e.lastBlockBroadcastAt }
func (e *Election) LastConfirmReqAt() time.Time     { return e.lastConfirmReqAt }

func (e *Election) SetLastVoteAt(t time.Time)           { e.lastVoteAt = t }
func (e *Election) SetLastBlockBroadcastAt(t time.Time) { e.lastBlockBroadcastAt = t }
func (e *Election) SetLastConfirmReqAt(t time.Time)     { e.lastConfirmReqAt = t }

// LastBroadcastWinner returns the winner hash as of the last
// broadcast_block call, used by ConfirmationSolicitor to detect a
// changed winner (spec §4.11).
func (e *Election) LastBroadcastWinner() hash.Hash { return e.lastBroadcastWinner }

func (e *Election) SetLastBroadcastWinner(h hash.Hash) { e.lastBroadcastWinner = h }

// CandidateCount reports how many candidate blocks are live (invariant
// (b): never exceeds MaxCandidates).
func (e *Election) CandidateCount() int { return len(e.candidates) }

// HasCandidate reports whether h is a current candidate.
func (e *Election) HasCandidate(h hash.Hash) bool {
	_, ok := e.candidates[h]
	return ok
}

// Candidate returns the candidate block for h, if any.
func (e *Election) Candidate(h hash.Hash) (ledger.Block, bool) {
	b, ok := e.candidates[h]
	return b, ok
}

// Candidates returns a snapshot of every candidate block.
func (e *Election) Candidates() []ledger.Block {
	out := make([]ledger.Block, 0, len(e.candidates))
	for _, b := range e.candidates {
		out = append(out, b)
	}
	return out
}

// Tally returns a snapshot of last_tally.
func (e *Election) Tally() map[hash.Hash]amount.Amount {
	out := make(map[hash.Hash]amount.Amount, len(e.lastTally))
	for h, w := range e.lastTally {
		out[h] = w
	}
	return out
}

// TallyOf returns the last computed weight for a specific candidate.
func (e *Election) TallyOf(h hash.Hash) amount.Amount {
	return e.lastTally[h]
}

// FinalWeight returns the sum of weights of reps whose latest vote on
// the winner carries the final-vote marker (spec §3).
func (e *Election) FinalWeight() amount.Amount { return e.finalWeight }

// AddCandidate inserts a new candidate block, enforcing invariant (b)
// (|candidates| <= MaxCandidates). Returns false if the cap is already
// reached — the caller (ActiveElections.Publish) is expected to have
// already made room via fork-replacement before calling this.
func (e *Election) AddCandidate(b ledger.Block) bool {
	if len(e.candidates) >= MaxCandidates {
		return false
	}
	e.candidates[b.Hash] = b
	return true
}

// EvictCandidate removes a non-winner candidate (fork-replacement by
// weight, spec §4.2). Refuses to evict the current winner, preserving
// invariant (a).
func (e *Election) EvictCandidate(h hash.Hash) bool {
	if h == e.winner {
		return false
	}
	delete(e.candidates, h)
	delete(e.lastTally, h)
	return true
}

// SortedCandidatesByTally returns candidate hashes sorted by
// last_tally descending, used by fork-replacement-by-weight (spec
// §4.2) to find "the minimum" eviction target.
func (e *Election) SortedCandidatesByTally() []hash.Hash {
	hashes := make([]hash.Hash, 0, len(e.candidates))
	for h := range e.candidates {
		hashes = append(hashes, h)
	}
	// Simple insertion sort: candidate counts are bounded by
	// MaxCandidates (10), so this is always O(100) at worst.
	for i := 1; i < len(hashes); i++ {
		for j := i; j > 0 && e.lastTally[hashes[j]].GT(e.lastTally[hashes[j-1]]); j-- {
			hashes[j], hashes[j-1] = hashes[j-1], hashes[j]
		}
	}
	return hashes
}

// MinTally returns the lowest-tallied non-winner candidate and its
// weight, for the fork-replacement comparison inactive_tally >
// min_tally (spec §4.2). ok is false if there is no evictable
// candidate (e.g. only the winner is present).
func (e *Election) MinTally() (h hash.Hash, w amount.Amount, ok bool) {
	first := true
	for cand, weight := range e.lastTally {
		if cand == e.winner {
			continue
		}
		if _, isCandidate := e.candidates[cand]; !isCandidate {
			continue
		}
		if first || weight.Cmp(w) < 0 {
			h, w, ok = cand, weight, true
			first = false
		}
	}
	return
}

// transitionTo moves the election to a new state. The caller holds
// the lock. State is monotonic except for the ExpiredUnconfirmed
// escape hatch (spec §3).
func (e *Election) transitionTo(s State) {
	e.state = s
}

// Transition moves the election to a new lifecycle state. Exported for
// ActiveElections' request loop (spec §4.2's transition_time), which
// owns the Passive->Active and *->Expired* edges; the Confirmed edge
// is owned exclusively by transitionToConfirmed/ForceConfirm. Caller
// holds the lock.
func (e *Election) Transition(s State) {
	e.transitionTo(s)
}

// newTallyBag is a small helper so apply_vote and fork-replacement
// share the same weighted-counting primitive (collections/bag).
func newTallyBag() bag.Bag[hash.Hash] {
	return bag.New[hash.Hash]()
}
