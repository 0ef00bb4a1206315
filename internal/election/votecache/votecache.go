// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package votecache implements VoteCache (spec §2.2, §4.5): a
// short-lived cache of votes for blocks not yet under election,
// bounded by total entries and by per-hash voter count, with a
// best-effort replay surface consumed when an election is admitted
// for a cached hash.
//
// Grounded on the teacher's confidence bounded-sampling idea
// (confidence/unary_quantum.go) combined with an LRU per-hash voter
// list; github.com/hashicorp/golang-lru/v2 supplies the per-hash LRU
// (ecosystem dependency, named per DESIGN.md's out-of-pack rule — no
// in-pack repo ships a vote-cache-shaped LRU).
package votecache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
)

// Entry is one cached voter's last vote on a given hash (spec §3
// "VoteCache entry").
type Entry struct {
	Voter      hash.Hash
	Weight     amount.Amount
	Timestamp  uint64
	ReceivedAt time.Time
}

type perHash struct {
	mu     sync.Mutex
	voters *lru.Cache[hash.Hash, Entry]
}

// Cache is VoteCache.
type Cache struct {
	mu         sync.Mutex
	maxHashes  int
	maxVoters  int
	byHash     *lru.Cache[hash.Hash, *perHash]
}

// New creates a Cache bounded to maxHashes distinct block hashes, each
// holding at most maxVoters voters (spec §6 vote_cache.max_size /
// max_voters; defaults 65536 / 64).
func New(maxHashes, maxVoters int) *Cache {
	byHash, _ := lru.New[hash.Hash, *perHash](maxHashes)
	return &Cache{maxHashes: maxHashes, maxVoters: maxVoters, byHash: byHash}
}

// Insert upserts rep's vote for each hash in hashes (spec §4.5):
// newest-by-timestamp wins per (hash, voter); per spec's Open Question
// resolution (DESIGN.md #2), Ignored votes must never reach this
// method — callers only insert votes classified Indeterminate.
func (c *Cache) Insert(rep hash.Hash, repWeight amount.Amount, timestamp uint64, hashes []hash.Hash, now time.Time) {
	for _, h := range hashes {
		c.insertOne(h, rep, repWeight, timestamp, now)
	}
}

func (c *Cache) insertOne(h, rep hash.Hash, repWeight amount.Amount, timestamp uint64, now time.Time) {
	c.mu.Lock()
	ph, ok := c.byHash.Get(h)
	if !ok {
		voters, _ := lru.New[hash.Hash, Entry](c.maxVoters)
		ph = &perHash{voters: voters}
		c.byHash.Add(h, ph)
	}
	c.mu.Unlock()

	ph.mu.Lock()
	defer ph.mu.Unlock()
	if existing, ok := ph.voters.Get(rep); ok && existing.Timestamp > timestamp {
		return
	}
	ph.voters.Add(rep, Entry{Voter: rep, Weight: repWeight, Timestamp: timestamp, ReceivedAt: now})
}

// Find returns a best-effort replay set for h (spec §4.5). VoteCache
// entries are not authoritative — callers must still run each through
// Election.ApplyVote.
func (c *Cache) Find(h hash.Hash) []Entry {
	c.mu.Lock()
	ph, ok := c.byHash.Get(h)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	ph.mu.Lock()
	defer ph.mu.Unlock()
	keys := ph.voters.Keys()
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := ph.voters.Peek(k); ok {
			out = append(out, e)
		}
	}
	return out
}

// Remove drops every cached voter for h, called once its votes have
// been replayed into a newly admitted election (spec §4.2 step 6).
func (c *Cache) Remove(h hash.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byHash.Remove(h)
}

// Len returns the number of distinct cached hashes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byHash.Len()
}
