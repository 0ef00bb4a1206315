// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package blockprocessor implements BlockProcessor (spec §2.9, §4.1):
// a priority queue of five source classes feeding a single worker that
// opens batched ledger write transactions and fans Progress/Fork
// status out to observers.
//
// Grounded on the teacher's worker/dispatcher shape in
// protocol/prism/default.go (a bounded-channel-per-class queue drained
// by one goroutine) combined with the per-block dispatch-by-status
// loop of a ledger processor.
package blockprocessor

import (
	"context"
	"sync"
	"time"

	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election/votehistory"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/nanolog"
	"github.com/nanolabs/consensuscore/nanometrics"
)

// Source is one of the five admission classes (spec §4.1).
type Source int

const (
	Live Source = iota
	Bootstrap
	Local
	Forced
	Unchecked
)

func (s Source) String() string {
	switch s {
	case Live:
		return "Live"
	case Bootstrap:
		return "Bootstrap"
	case Local:
		return "Local"
	case Forced:
		return "Forced"
	case Unchecked:
		return "Unchecked"
	default:
		return "Unknown"
	}
}

// Config bundles the per-source queue depths and batching parameters
// (spec §4.1 [ADDED], defaults matching original_source's bounded
// queues).
type Config struct {
	MaxLiveQueue      int
	MaxBootstrapQueue int
	MaxLocalQueue     int
	MaxForcedQueue    int
	MaxUncheckedQueue int

	BatchSize     int
	BatchInterval time.Duration
}

// DefaultConfig returns the defaults named in spec §4.1 [ADDED].
func DefaultConfig() Config {
	return Config{
		MaxLiveQueue:      256,
		MaxBootstrapQueue: 1024,
		MaxLocalQueue:     128,
		MaxForcedQueue:    256,
		MaxUncheckedQueue: 65536,
		BatchSize:         256,
		BatchInterval:     10 * time.Millisecond,
	}
}

// Observer receives fan-out notifications for blocks that passed the
// ledger's status check (spec §4.1: "Progress and Fork notifications
// fan out to observers").
type Observer interface {
	OnProgress(block ledger.Block)
	OnFork(block ledger.Block)
}

type item struct {
	block  ledger.Block
	source Source
}

// Processor is BlockProcessor.
type Processor struct {
	cfg   Config
	store ledger.Store
	log   nanolog.Logger
	stats *nanometrics.Stats

	history *votehistory.History
	// eraseActiveRoot erases a non-initial rolled-back root from
	// ActiveElections (spec §4.1: "erase non-initial rolled-back roots
	// from ActiveElections"). Satisfied by activeelections.Registry's
	// internal erase path exposed through a small adapter in node.
	eraseActiveRoot func(hash.QualifiedRoot)

	observersMu sync.Mutex
	observers   []Observer

	queues map[Source]chan item
}

// New creates a Processor. Call Run in its own goroutine to start the
// worker.
func New(cfg Config, store ledger.Store, history *votehistory.History, eraseActiveRoot func(hash.QualifiedRoot), stats *nanometrics.Stats, log nanolog.Logger) *Processor {
	if log == nil {
		log = nanolog.NoOp()
	}
	if cfg.BatchSize == 0 {
		cfg = DefaultConfig()
	}
	p := &Processor{
		cfg:             cfg,
		store:           store,
		log:             log,
		stats:           stats,
		history:         history,
		eraseActiveRoot: eraseActiveRoot,
		queues:          make(map[Source]chan item),
	}
	p.queues[Live] = make(chan item, cfg.MaxLiveQueue)
	p.queues[Bootstrap] = make(chan item, cfg.MaxBootstrapQueue)
	p.queues[Local] = make(chan item, cfg.MaxLocalQueue)
	p.queues[Forced] = make(chan item, cfg.MaxForcedQueue)
	p.queues[Unchecked] = make(chan item, cfg.MaxUncheckedQueue)
	return p
}

// Subscribe registers an observer for Progress/Fork fan-out.
func (p *Processor) Subscribe(o Observer) {
	p.observersMu.Lock()
	defer p.observersMu.Unlock()
	p.observers = append(p.observers, o)
}

// Add is BlockProcessor.add (spec §4.1): returns false if the queue
// for this source is full.
func (p *Processor) Add(block ledger.Block, source Source) bool {
	select {
	case p.queues[source] <- item{block: block, source: source}:
		return true
	default:
		if p.stats != nil {
			p.stats.BlocksDropped.WithLabelValues(source.String()).Inc()
		}
		return false
	}
}

// ProcessActive is process_active(block): the hot path used by inbound
// publish, processed synchronously against the ledger outside the
// batch loop (spec §4.1).
func (p *Processor) ProcessActive(ctx context.Context, block ledger.Block) ledger.BlockStatus {
	tx, err := p.store.BeginWrite(ctx)
	if err != nil {
		p.log.Error("process_active: begin write failed", nanolog.ErrField(err))
		return ledger.GapPrevious
	}
	status, err := p.store.Process(tx, block)
	if err != nil {
		p.store.Abort(tx)
		p.log.Error("process_active: ledger process failed", nanolog.ErrField(err))
		return ledger.GapPrevious
	}
	if err := p.store.Commit(tx); err != nil {
		p.log.Error("process_active: commit failed", nanolog.ErrField(err))
		return ledger.GapPrevious
	}
	p.notify(status, block)
	return status
}

// Run drives the single worker thread (spec §4.1: "a single worker
// thread pulls batches"), polling sources in class-priority order
// (Forced, Live, Local, Bootstrap, Unchecked) so locally-originated and
// forced re-submissions never starve behind bulk bootstrap traffic.
func (p *Processor) Run(ctx context.Context) {
	order := []Source{Forced, Live, Local, Bootstrap, Unchecked}
	ticker := time.NewTicker(p.cfg.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx, order)
		}
	}
}

// processBatch opens one write transaction per call and drains up to
// BatchSize items across all source queues (spec §4.1 [ADDED]: "one
// ledger write transaction per batch").
func (p *Processor) processBatch(ctx context.Context, order []Source) {
	tx, err := p.store.BeginWrite(ctx)
	if err != nil {
		p.log.Error("processBatch: begin write failed", nanolog.ErrField(err))
		return
	}

	type pending struct {
		block  ledger.Block
		status ledger.BlockStatus
	}
	var results []pending

	drained := 0
	for drained < p.cfg.BatchSize {
		popped := false
		for _, src := range order {
			select {
			case it := <-p.queues[src]:
				status, err := p.store.Process(tx, it.block)
				if err != nil {
					p.log.Error("processBatch: ledger process failed", nanolog.ErrField(err))
					continue
				}
				results = append(results, pending{block: it.block, status: status})
				drained++
				popped = true
			default:
			}
		}
		if !popped {
			break
		}
	}

	if len(results) == 0 {
		p.store.Abort(tx)
		return
	}
	if err := p.store.Commit(tx); err != nil {
		p.log.Error("processBatch: commit failed", nanolog.ErrField(err))
		return
	}

	for _, r := range results {
		p.notify(r.status, r.block)
	}
}

func (p *Processor) notify(status ledger.BlockStatus, block ledger.Block) {
	switch status {
	case ledger.Progress:
		p.observersMu.Lock()
		obs := append([]Observer(nil), p.observers...)
		p.observersMu.Unlock()
		for _, o := range obs {
			o.OnProgress(block)
		}
	case ledger.Fork:
		p.observersMu.Lock()
		obs := append([]Observer(nil), p.observers...)
		p.observersMu.Unlock()
		for _, o := range obs {
			o.OnFork(block)
		}
	default:
		if p.stats != nil {
			p.stats.BlocksDropped.WithLabelValues(status.String()).Inc()
		}
	}
}

// RolledBack is the blocks_rolled_back handler (spec §4.1): consumers
// must delete affected votes from LocalVoteHistory and erase each
// non-initial rolled-back block's own root from ActiveElections.
func (p *Processor) RolledBack(rolledBack []ledger.RolledBack) {
	for _, rb := range rolledBack {
		p.history.EraseRoot(rb.Root)
		if !rb.Initial && p.eraseActiveRoot != nil {
			p.eraseActiveRoot(rb.Root)
		}
	}
}
