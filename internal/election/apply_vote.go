// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"context"
	"time"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/ledger"
)

// VoteCode is the outcome of applying one vote (spec §4.3).
type VoteCode int

const (
	VoteOK VoteCode = iota
	VoteReplay
	VoteIndeterminate
	VoteIgnored
	VoteInvalid
)

func (c VoteCode) String() string {
	switch c {
	case VoteOK:
		return "Vote"
	case VoteReplay:
		return "Replay"
	case VoteIndeterminate:
		return "Indeterminate"
	case VoteIgnored:
		return "Ignored"
	case VoteInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// cooldown tiers a representative's vote-spam cooldown by its share of
// the network's trended online weight (spec §4.6: "> 5% -> 1s, > 1% ->
// 5s, else 15s"). The percentage base is the trended online weight,
// since that is the only network-wide weight figure apply_vote has
// visibility into.
func cooldown(repWeight, trendedOnline amount.Amount) time.Duration {
	if trendedOnline.IsZero() {
		return 15 * time.Second
	}
	if repWeight.GT(trendedOnline.MulFraction(5, 100)) {
		return time.Second
	}
	if repWeight.GT(trendedOnline.MulFraction(1, 100)) {
		return 5 * time.Second
	}
	return 15 * time.Second
}

// ApplyVote is Election.apply_vote (spec §4.6). The caller must hold
// the election's lock.
func (e *Election) ApplyVote(ctx context.Context, rep hash.Hash, timestamp uint64, blockHash hash.Hash, source Source) VoteCode {
	now := e.deps.now()

	if !e.deps.Weights.IsPrincipal(rep) {
		return VoteIndeterminate
	}
	repWeight := e.deps.Weights.Weight(rep)

	last, hasLast := e.lastVotes[rep]
	if hasLast {
		if last.Timestamp > timestamp {
			return VoteReplay
		}
		if last.Timestamp == timestamp && !blockHash.Less(last.Hash) {
			// blockHash >= last.Hash lexicographically: replay (spec
			// §4.6 step 2, second bullet).
			return VoteReplay
		}
		if timestamp < FinalTimestamp && source == SourceLive {
			if now.Sub(last.ReceivedAt) < cooldown(repWeight, e.deps.Delta.TrendedOnlineWeight()) {
				return VoteIgnored
			}
		}
	}

	e.lastVotes[rep] = VoteRecord{Hash: blockHash, Timestamp: timestamp, ReceivedAt: now}

	e.confirmIfQuorum(ctx, now)

	return VoteOK
}

// confirmIfQuorum is spec §4.6 step 4: recompute tally, possibly
// switch winner, check quorum, possibly transition to Confirmed. The
// caller holds the election's lock.
func (e *Election) confirmIfQuorum(ctx context.Context, now time.Time) {
	tally := newTallyBag()
	finalTally := newTallyBag()
	for rep, v := range e.lastVotes {
		w := e.deps.Weights.Weight(rep)
		tally.Add(v.Hash, w)
		if v.Timestamp == FinalTimestamp {
			finalTally.Add(v.Hash, w)
		}
	}

	e.lastTally = make(map[hash.Hash]amount.Amount, tally.Len())
	for _, h := range tally.Keys() {
		e.lastTally[h] = tally.Weight(h)
	}
	e.finalWeight = finalTally.Weight(e.winner)

	leader, leaderWeight, _, runnerUpWeight := tally.Leaders(hash.Hash.Less)

	// Once Confirmed the winner is immutable; late votes may still
	// refresh the tally snapshot but can never flip the leader.
	if leader != e.winner && !e.confirmedOnce {
		if _, ok := e.candidates[leader]; ok {
			oldWinner := e.winner
			e.winner = leader
			if e.deps.EraseVoteHistory != nil {
				e.deps.EraseVoteHistory(oldWinner)
			}
			if b, ok := e.candidates[leader]; ok && e.deps.ForceProcess != nil {
				e.forceWinner(ctx, b)
			}
			e.finalWeight = finalTally.Weight(e.winner)
		}
	}

	delta := e.deps.Delta.Delta()
	isQuorum := leaderWeight.SatSub(runnerUpWeight).GTE(delta)
	if isQuorum {
		if e.deps.EnqueueFinalVote != nil {
			e.deps.EnqueueFinalVote(e.root, e.winner)
		}
		if e.finalWeight.GTE(delta) {
			e.transitionToConfirmed(ctx, now)
		}
	}
}

// HaveQuorum reports whether the last computed tally clears
// online_delta() between the leader and runner-up (spec §4.4
// broadcast_vote predicate: "have_quorum(current_tally)"). Caller
// holds the election's lock.
func (e *Election) HaveQuorum() bool {
	var leaderWeight, runnerUpWeight amount.Amount
	first := true
	for _, w := range e.lastTally {
		switch {
		case first:
			leaderWeight = w
			first = false
		case w.GT(leaderWeight):
			runnerUpWeight = leaderWeight
			leaderWeight = w
		case w.GT(runnerUpWeight):
			runnerUpWeight = w
		}
	}
	return leaderWeight.SatSub(runnerUpWeight).GTE(e.deps.Delta.Delta())
}

func (e *Election) forceWinner(ctx context.Context, b ledger.Block) {
	e.deps.ForceProcess(ctx, b)
}

// transitionToConfirmed implements spec §4.7. Idempotent: a second
// call (the spec's "Idempotence of confirmation" law) is a no-op.
func (e *Election) transitionToConfirmed(ctx context.Context, now time.Time) {
	if e.confirmedOnce {
		return
	}
	e.confirmedOnce = true
	e.transitionTo(Confirmed)

	if e.deps.OnConfirmed != nil {
		e.deps.OnConfirmed(ctx, e, e.winner, e.finalWeight, e.Tally())
	}
}

// ForceConfirm is the manual confirmation path described in
// SPEC_FULL.md (supplemented feature 2, grounded on
// original_source/rust/node/src/consensus/active_elections.rs's
// force_confirm): used by bootstrap fast-forward and by tests that
// need a deterministic confirmation without waiting out real quorum
// arithmetic. Caller holds the lock.
func (e *Election) ForceConfirm(ctx context.Context) {
	e.transitionToConfirmed(ctx, e.deps.now())
}
