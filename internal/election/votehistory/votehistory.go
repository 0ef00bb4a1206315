// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package votehistory implements LocalVoteHistory (spec §2.3): a
// bounded archive of this node's own representative votes, recorded
// by VoteGenerators on every flush and cleared per-hash when a winner
// is superseded (spec §4.6 step 4b) or per-root when blocks are rolled
// back (spec §4.1 blocks_rolled_back).
//
// Grounded on the teacher's utils/bag bounded-counting container,
// adapted here to a bounded deque keyed by the voted-for hash;
// stdlib-only (container/list) per the same DESIGN.md justification
// as recentcache — no pack dependency offers this exact shape.
package votehistory

import (
	"container/list"
	"sync"

	"github.com/nanolabs/consensuscore/collections/hash"
)

// Entry is one local vote this node cast.
type Entry struct {
	Root      hash.QualifiedRoot
	Hash      hash.Hash
	Timestamp uint64
}

// History is LocalVoteHistory.
type History struct {
	mu      sync.Mutex
	cap     int
	order   *list.List
	byHash  map[hash.Hash][]*list.Element
}

// New creates a History bounded to capacity entries.
func New(capacity int) *History {
	return &History{
		cap:    capacity,
		order:  list.New(),
		byHash: make(map[hash.Hash][]*list.Element),
	}
}

// Record appends a newly cast local vote, evicting the oldest entry on
// overflow.
func (h *History) Record(root hash.QualifiedRoot, winner hash.Hash, timestamp uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	el := h.order.PushBack(Entry{Root: root, Hash: winner, Timestamp: timestamp})
	h.byHash[winner] = append(h.byHash[winner], el)

	for h.order.Len() > h.cap {
		front := h.order.Front()
		e := front.Value.(Entry)
		h.removeElement(e.Hash, front)
		h.order.Remove(front)
	}
}

// EraseHash removes every recorded local vote for the given hash (spec
// §4.6 step 4b: "erase the old winner's local-vote-history entries").
func (h *History) EraseHash(target hash.Hash) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, el := range h.byHash[target] {
		h.order.Remove(el)
	}
	delete(h.byHash, target)
}

// EraseRoot removes every recorded local vote for the given root,
// called from BlockProcessor's blocks_rolled_back handling (spec
// §4.1, §9 open question 3: rollback of a non-Confirmed election's
// candidates clears its local-vote history by root).
func (h *History) EraseRoot(root hash.QualifiedRoot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for target, els := range h.byHash {
		kept := els[:0]
		for _, el := range els {
			if el.Value.(Entry).Root == root {
				h.order.Remove(el)
				continue
			}
			kept = append(kept, el)
		}
		if len(kept) == 0 {
			delete(h.byHash, target)
		} else {
			h.byHash[target] = kept
		}
	}
}

func (h *History) removeElement(target hash.Hash, el *list.Element) {
	els := h.byHash[target]
	for i, e := range els {
		if e == el {
			els = append(els[:i], els[i+1:]...)
			break
		}
	}
	if len(els) == 0 {
		delete(h.byHash, target)
	} else {
		h.byHash[target] = els
	}
}

// Contains reports whether this node has already cast a local vote for
// the given (root, hash) pair. VoteGenerators do not consult it; they
// sign and record every pending pair on each flush.
func (h *History) Contains(root hash.QualifiedRoot, winner hash.Hash) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, el := range h.byHash[winner] {
		if el.Value.(Entry).Root == root {
			return true
		}
	}
	return false
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.order.Len()
}
