// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lockcheck is a re-entrancy assertion helper, active in every
// build
// (spec §5, §7: "Impossible states... fatal; process aborts with a
// diagnostic"), standing in for the lock-ordering-by-construction
// discipline the rest of the core follows structurally.
//
// Grounded on the pattern referenced transitively in the pack for
// mutex re-entrancy assertions; built on stdlib sync/runtime alone
// since no example repo vendors a dedicated assertion library and one
// isn't worth adding for a helper this small.
package lockcheck

import (
	"fmt"
	"runtime"
	"sync"
)

// Guard detects a goroutine re-entering a critical section it already
// holds. It is not a substitute for a real mutex — it panics instead
// of blocking, so call Enter/Exit only around sections that must never
// legitimately nest.
type Guard struct {
	mu      sync.Mutex
	holders map[int64]struct{}
}

// New creates an empty Guard.
func New() *Guard {
	return &Guard{holders: make(map[int64]struct{})}
}

// Enter panics if the calling goroutine already holds this guard.
func (g *Guard) Enter() {
	id := goroutineID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.holders[id]; held {
		panic(fmt.Sprintf("lockcheck: goroutine %d re-entered a held critical section", id))
	}
	g.holders[id] = struct{}{}
}

// Exit releases the calling goroutine's hold on this guard.
func (g *Guard) Exit() {
	id := goroutineID()
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.holders, id)
}

// goroutineID parses the numeric id out of runtime.Stack's header
// line. It is slow, so Guard only wraps coarse sections (one whole
// cementation per Enter/Exit pair).
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	var id int64
	fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}
