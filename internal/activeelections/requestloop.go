// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package activeelections

import (
	"context"
	"time"

	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election"
)

// Run drives the request loop (spec §4.2 "Request loop") until ctx is
// canceled: one dedicated goroutine, period = network.aec_loop_interval.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick is one request-loop iteration (spec §4.2 steps 1-5).
func (r *Registry) tick(ctx context.Context) {
	now := time.Now()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	elections := make([]*election.Election, 0, len(r.insertOrder))
	for _, root := range r.insertOrder {
		if e, ok := r.byRoot[root]; ok {
			elections = append(elections, e)
		}
	}
	r.mu.Unlock()

	var principals []hash.Hash
	if r.principals != nil {
		principals = r.principals()
	}
	var sol Solicitor
	if r.newSolicitor != nil {
		sol = r.newSolicitor(principals)
	}

	toErase := make([]hash.QualifiedRoot, 0)
	for _, e := range elections {
		e.Lock()
		terminal := r.transitionTime(ctx, sol, e, now)
		e.Unlock()
		if terminal {
			toErase = append(toErase, e.Root())
		}
	}

	if sol != nil {
		sol.Flush()
	}

	if len(toErase) > 0 {
		r.mu.Lock()
		for _, root := range toErase {
			r.erase(root)
		}
		r.mu.Unlock()
	}

	r.trim()
}

// transitionTime is Election.transition_time (spec §4.2 step 3).
// Caller holds e's lock. Returns true if e is now terminal and should
// be erased.
func (r *Registry) transitionTime(ctx context.Context, sol Solicitor, e *election.Election, now time.Time) bool {
	switch e.State() {
	case election.Passive:
		if now.Sub(e.StartedAt()) >= r.cfg.BaseLatency*election.PassiveFactor {
			e.Transition(election.Active)
		}

	case election.Active:
		if r.voteBroadcaster != nil {
			r.voteBroadcaster.BroadcastVote(ctx, e, now)
		}
		if sol != nil {
			// Solicitor owns the broadcast_block/send_confirm_req rate
			// gates and stamps last_*_at itself (spec §4.11).
			sol.Broadcast(e)
			sol.Add(e)
		}

	case election.Confirmed:
		if sol != nil {
			sol.Broadcast(e)
		}
		e.Transition(election.ExpiredConfirmed)
		return true
	}

	if !e.State().Terminal() && now.Sub(e.StartedAt()) > r.timeToLive(e.Behavior()) {
		e.Transition(election.ExpiredUnconfirmed)
		return true
	}
	return e.State().Terminal()
}

// timeToLive is spec §4.2's time_to_live(behavior): 5x base_latency for
// Priority/Hinted, 2x for Optimistic.
func (r *Registry) timeToLive(b election.Behavior) time.Duration {
	if b == election.Optimistic {
		return 2 * r.cfg.BaseLatency
	}
	return 5 * r.cfg.BaseLatency
}
