// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package activeelections

import (
	"context"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election"
)

// Info is a read-only snapshot of one election, for RPC/diagnostics
// (SPEC_FULL.md supplemented feature 3, grounded on
// original_source/rust/node/src/consensus/active_elections.rs's
// election_info request).
type Info struct {
	Root        hash.QualifiedRoot
	State       election.State
	Behavior    election.Behavior
	Winner      hash.Hash
	Tally       map[hash.Hash]amount.Amount
	FinalWeight amount.Amount
	VoteCount   int // number of candidate blocks (CandidateCount), not of votes
}

// Info reports a snapshot of the election at root, if live.
func (r *Registry) Info(root hash.QualifiedRoot) (Info, bool) {
	e, ok := r.ByRoot(root)
	if !ok {
		return Info{}, false
	}
	e.Lock()
	defer e.Unlock()
	return Info{
		Root:        e.Root(),
		State:       e.State(),
		Behavior:    e.Behavior(),
		Winner:      e.Winner(),
		Tally:       e.Tally(),
		FinalWeight: e.FinalWeight(),
		VoteCount:   e.CandidateCount(),
	}, true
}

// ForceConfirm manually confirms a live election, bypassing quorum
// arithmetic (SPEC_FULL.md supplemented feature 2). Used by bootstrap
// fast-forward (a peer-confirmed root that this node hasn't
// independently reached quorum on yet) and by deterministic tests.
func (r *Registry) ForceConfirm(ctx context.Context, root hash.QualifiedRoot) bool {
	e, ok := r.ByRoot(root)
	if !ok {
		return false
	}
	e.Lock()
	defer e.Unlock()
	if e.State() == election.Confirmed || e.State().Terminal() {
		return false
	}
	e.ForceConfirm(ctx)
	return true
}
