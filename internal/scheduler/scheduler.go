// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scheduler implements ElectionSchedulers (spec §2.8, §4.9):
// the four admission paths — Priority, Hinted, Optimistic, Manual —
// that decide which contested roots become elections in ActiveElections.
//
// Grounded on the teacher's poll/sampler.go bucketed round-robin
// sampling and its cooperative wake-on-notify loop shape (the same
// pattern used by quorum/dynamic.go's background goroutine).
package scheduler

import (
	"context"
	"sync"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/nanolog"
)

// Admitter is the subset of ActiveElections the schedulers need (spec
// §4.9: every path "feeds ActiveElections"). Satisfied by
// *activeelections.Registry.
type Admitter interface {
	Insert(ctx context.Context, block ledger.Block, behavior election.Behavior) (bool, *election.Election)
	Vacancy(b election.Behavior) int
}

// Bucket is one Priority scheduler bucket (spec §4.9: "N priority
// buckets; each bucket has max_blocks and reserved_elections").
type Bucket struct {
	MaxBlocks         int
	ReservedElections int

	mu    sync.Mutex
	queue []ledger.Block
}

// Push enqueues a block into the bucket, dropping it if MaxBlocks is
// already reached.
func (b *Bucket) Push(block ledger.Block) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) >= b.MaxBlocks {
		return false
	}
	b.queue = append(b.queue, block)
	return true
}

func (b *Bucket) pop() (ledger.Block, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return ledger.Block{}, false
	}
	block := b.queue[0]
	b.queue = b.queue[1:]
	return block, true
}

// Scheduler runs the four admission paths (spec §4.9). The loop is
// cooperative: Notify wakes Run's single goroutine, which then drains
// whatever admissions it can make.
type Scheduler struct {
	admitter Admitter
	log      nanolog.Logger

	wake chan struct{}

	priorityMu sync.Mutex
	buckets    []*Bucket
	bucketIdx  int

	hintedMu          sync.Mutex
	hintedCandidates  []ledger.Block
	hintingThresholdPct int
	onlineWeight      func() amount.Amount
	votesOn           func(hash.Hash) amount.Amount

	optimisticMu    sync.Mutex
	optimisticHeads []ledger.Block
	gapThreshold    int
}

// New creates a Scheduler with the given priority buckets.
func New(admitter Admitter, buckets []*Bucket, hintingThresholdPct, gapThreshold int, onlineWeight func() amount.Amount, votesOn func(hash.Hash) amount.Amount, log nanolog.Logger) *Scheduler {
	if log == nil {
		log = nanolog.NoOp()
	}
	return &Scheduler{
		admitter:            admitter,
		log:                 log,
		wake:                make(chan struct{}, 1),
		buckets:             buckets,
		hintingThresholdPct: hintingThresholdPct,
		onlineWeight:        onlineWeight,
		votesOn:             votesOn,
		gapThreshold:        gapThreshold,
	}
}

// Notify wakes the scheduler loop (spec §4.9: "wakes on notify()").
// Non-blocking: a pending wake already queued is sufficient.
func (s *Scheduler) Notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the cooperative scheduler loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			s.drain(ctx)
		}
	}
}

func (s *Scheduler) drain(ctx context.Context) {
	s.drainPriority(ctx)
	s.drainHinted(ctx)
	s.drainOptimistic(ctx)
}

// PushPriority enqueues a block into the bucket selected by the
// caller (normally by balance magnitude, spec §4.9), fed by the block
// processor's successful-progress stream and by block-cemented events
// activating dependents.
func (s *Scheduler) PushPriority(bucket int, block ledger.Block) bool {
	if bucket < 0 || bucket >= len(s.buckets) {
		return false
	}
	ok := s.buckets[bucket].Push(block)
	if ok {
		s.Notify()
	}
	return ok
}

// drainPriority round-robins across buckets while vacancy(Priority) > 0
// (spec §4.9).
func (s *Scheduler) drainPriority(ctx context.Context) {
	s.priorityMu.Lock()
	defer s.priorityMu.Unlock()

	if len(s.buckets) == 0 {
		return
	}
	// Round-robin until a full pass across every bucket finds nothing
	// to pop, or vacancy runs out (spec §4.9: "Round-robin across
	// buckets while vacancy(Priority) > 0").
	emptyStreak := 0
	for emptyStreak < len(s.buckets) {
		if s.admitter.Vacancy(election.Priority) <= 0 {
			return
		}
		b := s.buckets[s.bucketIdx]
		s.bucketIdx = (s.bucketIdx + 1) % len(s.buckets)
		block, ok := b.pop()
		if !ok {
			emptyStreak++
			continue
		}
		emptyStreak = 0
		s.admitter.Insert(ctx, block, election.Priority)
	}
}

// PushHinted stages a candidate for Hinted admission consideration;
// the candidate is admitted on the next drain if its observed cached
// weight clears hinting_threshold_percent of online weight.
func (s *Scheduler) PushHinted(block ledger.Block) {
	s.hintedMu.Lock()
	s.hintedCandidates = append(s.hintedCandidates, block)
	s.hintedMu.Unlock()
	s.Notify()
}

func (s *Scheduler) drainHinted(ctx context.Context) {
	s.hintedMu.Lock()
	candidates := s.hintedCandidates
	s.hintedCandidates = nil
	s.hintedMu.Unlock()

	if s.votesOn == nil || s.onlineWeight == nil {
		return
	}
	threshold := s.onlineWeight().MulFraction(uint64(s.hintingThresholdPct), 100)
	for _, block := range candidates {
		if s.admitter.Vacancy(election.Hinted) <= 0 {
			return
		}
		if s.votesOn(block.Hash).GTE(threshold) {
			s.admitter.Insert(ctx, block, election.Hinted)
		}
	}
}

// PushOptimistic stages a gapped head for rate-limited speculative
// election (spec §4.9's gap-based Optimistic path).
func (s *Scheduler) PushOptimistic(block ledger.Block) {
	s.optimisticMu.Lock()
	s.optimisticHeads = append(s.optimisticHeads, block)
	s.optimisticMu.Unlock()
	s.Notify()
}

func (s *Scheduler) drainOptimistic(ctx context.Context) {
	s.optimisticMu.Lock()
	heads := s.optimisticHeads
	s.optimisticHeads = nil
	s.optimisticMu.Unlock()

	for i, block := range heads {
		if i >= s.gapThreshold || s.admitter.Vacancy(election.Optimistic) <= 0 {
			s.optimisticMu.Lock()
			s.optimisticHeads = append(s.optimisticHeads, heads[i:]...)
			s.optimisticMu.Unlock()
			return
		}
		s.admitter.Insert(ctx, block, election.Optimistic)
	}
}

// Manual admits block under Priority behavior directly, bypassing
// vacancy (spec §4.9: "Manual ... bypasses vacancy for already-known
// local blocks") — used by wallets, RPC, and the local block
// broadcaster.
func (s *Scheduler) Manual(ctx context.Context, block ledger.Block) (bool, *election.Election) {
	return s.admitter.Insert(ctx, block, election.Priority)
}
