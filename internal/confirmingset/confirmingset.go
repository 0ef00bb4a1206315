// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package confirmingset implements ConfirmingSet (spec §2.10, §4.8):
// a single-writer cementation queue whose worker walks each account
// chain from its cemented frontier up to the confirmed hash, cementing
// blocks in dependency order and firing cemented/already_cemented
// exactly once per hash.
//
// Grounded on the teacher's single-consumer work-queue shape
// (protocol/prism/default.go's dispatcher) combined with an explicit
// stack walk in place of recursion, following
// original_source/rust/node/src/cementing/bounded_mode_helper.rs's
// bounded-stack dependency resolution.
package confirmingset

import (
	"context"
	"sync"

	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/lockcheck"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/nanolog"
	"github.com/nanolabs/consensuscore/nanometrics"
)

// Observer receives cementation fan-out (spec §4.8 step 3, guarantee c).
type Observer interface {
	OnCemented(block ledger.Block)
	OnAlreadyCemented(h hash.Hash)
}

// Set is ConfirmingSet.
type Set struct {
	store ledger.Store
	log   nanolog.Logger
	stats *nanometrics.Stats

	observersMu sync.Mutex
	observers   []Observer

	queue chan hash.Hash

	// cementing asserts guarantee (a) ("at most one cementation in
	// progress") — Run has exactly one worker loop, but nothing stops
	// Run from being started twice, so this catches a second concurrent
	// worker added by mistake.
	cementing *lockcheck.Guard
}

// New creates a Set with the given queue depth.
func New(store ledger.Store, queueDepth int, stats *nanometrics.Stats, log nanolog.Logger) *Set {
	if log == nil {
		log = nanolog.NoOp()
	}
	if queueDepth <= 0 {
		queueDepth = 1024
	}
	return &Set{
		store:     store,
		log:       log,
		stats:     stats,
		queue:     make(chan hash.Hash, queueDepth),
		cementing: lockcheck.New(),
	}
}

// Subscribe registers an observer for cemented/already_cemented events.
func (s *Set) Subscribe(o Observer) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, o)
}

// Add enqueues hash for cementation (spec §4.8: "add(hash) enqueues").
// This is the Cementer interface activeelections.Registry depends on.
func (s *Set) Add(h hash.Hash) {
	select {
	case s.queue <- h:
	default:
		s.log.Warn("confirmingset: queue full, dropping cementation request")
	}
}

// Run drives the single worker thread until ctx is canceled (spec
// §4.8 guarantee a: "at most one cementation in progress").
func (s *Set) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case h := <-s.queue:
			s.cement(ctx, h)
		}
	}
}

// cement is the per-pop worker body (spec §4.8).
func (s *Set) cement(ctx context.Context, target hash.Hash) {
	s.cementing.Enter()
	defer s.cementing.Exit()

	tx, err := s.store.BeginWrite(ctx)
	if err != nil {
		s.log.Error("confirmingset: begin write failed", nanolog.ErrField(err))
		return
	}
	defer func() {
		if tx != nil {
			s.store.Abort(tx)
		}
	}()

	block, ok := s.store.GetBlock(tx, target)
	if !ok || s.store.IsConfirmed(tx, target) {
		s.store.Commit(tx)
		tx = nil
		s.emitAlreadyCemented(target)
		return
	}

	path, err := s.dependencyPath(tx, block)
	if err != nil {
		s.log.Error("confirmingset: dependency walk failed", nanolog.ErrField(err))
		return
	}

	var toEmit []ledger.Block
	for _, b := range path {
		if s.store.IsConfirmed(tx, b.Hash) {
			continue
		}
		if err := s.store.Confirm(tx, b.Hash); err != nil {
			s.log.Error("confirmingset: ledger confirm failed", nanolog.ErrField(err))
			return
		}
		toEmit = append(toEmit, b)
	}

	if err := s.store.Commit(tx); err != nil {
		s.log.Error("confirmingset: commit failed", nanolog.ErrField(err))
		tx = nil
		return
	}
	tx = nil

	for _, b := range toEmit {
		s.emitCemented(b)
	}
	if s.stats != nil {
		s.stats.BlocksCemented.Add(float64(len(toEmit)))
	}
}

// dependencyPath walks from the account's cemented frontier up to
// target along its chain, pushing any receive's source block ahead of
// it via an explicit stack (spec §4.8 step 2: "bounded recursion via
// explicit stack").
func (s *Set) dependencyPath(tx ledger.Tx, target ledger.Block) ([]ledger.Block, error) {
	chain, err := s.walkChain(tx, target)
	if err != nil {
		return nil, err
	}

	var ordered []ledger.Block
	visited := make(map[hash.Hash]bool)
	// chain is oldest-first; the stack pops from its tail, so it is
	// built reversed (oldest on top) to process dependencies before
	// dependents (spec §4.8 guarantee b).
	stack := make([]ledger.Block, len(chain))
	for i, b := range chain {
		stack[len(chain)-1-i] = b
	}

	for len(stack) > 0 {
		b := stack[len(stack)-1]
		if visited[b.Hash] || s.store.IsConfirmed(tx, b.Hash) {
			stack = stack[:len(stack)-1]
			continue
		}
		if b.LinkKind == ledger.LinkReceive {
			source, ok := s.store.GetBlock(tx, b.Link)
			if ok && !s.store.IsConfirmed(tx, source.Hash) && !visited[source.Hash] {
				// Source not yet cemented: push its whole uncemented
				// chain ahead of the dependent receive, so the source's
				// own predecessors cement before it does (spec §4.8
				// step 2a, guarantee b).
				srcChain, err := s.walkChain(tx, source)
				if err != nil {
					return nil, err
				}
				pushed := false
				for i := len(srcChain) - 1; i >= 0; i-- {
					if !visited[srcChain[i].Hash] {
						stack = append(stack, srcChain[i])
						pushed = true
					}
				}
				if pushed {
					continue
				}
			}
		}
		visited[b.Hash] = true
		ordered = append(ordered, b)
		stack = stack[:len(stack)-1]
	}
	return ordered, nil
}

// walkChain collects the uncemented blocks of target's account chain up
// to and including target, oldest first, starting at the account's open
// block and climbing forward with Successor.
func (s *Set) walkChain(tx ledger.Tx, target ledger.Block) ([]ledger.Block, error) {
	info, ok := s.store.AccountInfo(tx, target.Account)
	if !ok {
		return []ledger.Block{target}, nil
	}

	var chain []ledger.Block
	h := info.OpenBlock
	for {
		b, ok := s.store.GetBlock(tx, h)
		if !ok {
			break
		}
		if !s.store.IsConfirmed(tx, h) {
			chain = append(chain, b)
		}
		if h == target.Hash {
			break
		}
		next, ok := s.store.Successor(tx, h)
		if !ok {
			break
		}
		h = next
	}
	if len(chain) == 0 {
		chain = []ledger.Block{target}
	}
	return chain, nil
}

func (s *Set) emitCemented(b ledger.Block) {
	s.observersMu.Lock()
	obs := append([]Observer(nil), s.observers...)
	s.observersMu.Unlock()
	for _, o := range obs {
		o.OnCemented(b)
	}
}

func (s *Set) emitAlreadyCemented(h hash.Hash) {
	if s.stats != nil {
		s.stats.AlreadyCemented.Inc()
	}
	s.observersMu.Lock()
	obs := append([]Observer(nil), s.observers...)
	s.observersMu.Unlock()
	for _, o := range obs {
		o.OnAlreadyCemented(h)
	}
}
