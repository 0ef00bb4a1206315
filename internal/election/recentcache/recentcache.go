// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package recentcache implements RecentlyConfirmedCache (spec §2.1,
// §4.10): a bounded, insertion-ordered set of (root, winning_hash)
// pairs with two membership indexes, all operations O(1) amortized.
//
// Grounded on the teacher's poll.set (poll/poll.go: a map keyed by
// request id, deleted on completion) generalized to a dual-indexed
// FIFO — no pack dependency offers a dual-key bounded set, so this is
// hand-rolled (DESIGN.md justification).
package recentcache

import (
	"container/list"
	"sync"

	"github.com/nanolabs/consensuscore/collections/hash"
)

type entry struct {
	root hash.QualifiedRoot
	win  hash.Hash
}

// Cache is RecentlyConfirmedCache.
type Cache struct {
	mu       sync.Mutex
	cap    int
	order  *list.List // front = oldest
	byRoot map[hash.QualifiedRoot]*list.Element
	byHash map[hash.Hash]*list.Element
}

// New creates a Cache bounded to capacity entries (default 65536,
// spec §4.2).
func New(capacity int) *Cache {
	return &Cache{
		cap:    capacity,
		order:  list.New(),
		byRoot: make(map[hash.QualifiedRoot]*list.Element),
		byHash: make(map[hash.Hash]*list.Element),
	}
}

// Put appends (root, winningHash), evicting the oldest entry on
// overflow (spec §4.10).
func (c *Cache) Put(root hash.QualifiedRoot, winningHash hash.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byRoot[root]; ok {
		c.remove(el)
	}

	el := c.order.PushBack(entry{root: root, win: winningHash})
	c.byRoot[root] = el
	c.byHash[winningHash] = el

	for c.order.Len() > c.cap {
		c.remove(c.order.Front())
	}
}

func (c *Cache) remove(el *list.Element) {
	e := el.Value.(entry)
	delete(c.byRoot, e.root)
	delete(c.byHash, e.win)
	c.order.Remove(el)
}

// Exists reports whether h is a recently-confirmed winning hash.
func (c *Cache) Exists(h hash.Hash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byHash[h]
	return ok
}

// RootExists reports whether root was recently confirmed (spec
// invariant 4: RecentlyConfirmed contains (root,hash) => no live
// election with the same root).
func (c *Cache) RootExists(root hash.QualifiedRoot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byRoot[root]
	return ok
}

// RootMatches reports whether (root, h) is a recorded pair, used by
// VoteRouter to classify a vote as Replay (spec §4.3).
func (c *Cache) RootMatches(root hash.QualifiedRoot, h hash.Hash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.byRoot[root]
	if !ok {
		return false
	}
	return el.Value.(entry).win == h
}

// Back returns the most recently inserted entry, for diagnostics and
// tests.
func (c *Cache) Back() (root hash.QualifiedRoot, winningHash hash.Hash, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	back := c.order.Back()
	if back == nil {
		return hash.QualifiedRoot{}, hash.Hash{}, false
	}
	e := back.Value.(entry)
	return e.root, e.win, true
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes every entry, used by scenario tests (spec §8 S5).
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.byRoot = make(map[hash.QualifiedRoot]*list.Element)
	c.byHash = make(map[hash.Hash]*list.Element)
}
