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

// WeightLookup answers the principal-rep and weight queries apply_vote
// needs (spec §4.6 step 1). Satisfied by *repregistry.Registry.
type WeightLookup interface {
	Weight(rep hash.Hash) amount.Amount
	IsPrincipal(rep hash.Hash) bool
}

// DeltaSource answers online_delta() (spec §4.6 step 4d). Satisfied by
// *collections/quorum.Tracker.
type DeltaSource interface {
	Delta() amount.Amount
	TrendedOnlineWeight() amount.Amount
}

// Deps are the non-owning collaborator references an Election needs
// to carry out apply_vote and the confirmation transition without
// owning any of them itself (spec §9 "Cyclic references" — back-edges
// are weak handles, strong ownership flows from the Node downward).
type Deps struct {
	Weights WeightLookup
	Delta   DeltaSource

	// ForceProcess re-submits a block through BlockProcessor with
	// Source = Forced when the tally picks a new winner that isn't
	// the currently-processed head (spec §4.6 step 4b).
	ForceProcess func(ctx context.Context, block ledger.Block)

	// EraseVoteHistory removes LocalVoteHistory entries for a hash
	// that stopped being the winner (spec §4.6 step 4b).
	EraseVoteHistory func(h hash.Hash)

	// EnqueueFinalVote/EnqueueNormalVote feed the local VoteGenerators
	// (spec §4.4, §4.6 step 4d).
	EnqueueFinalVote  func(root hash.QualifiedRoot, winner hash.Hash)
	EnqueueNormalVote func(root hash.QualifiedRoot, winner hash.Hash)

	// OnConfirmed is called once, under the election's lock, the
	// first time the election transitions to Confirmed (spec §4.7):
	// append to RecentlyConfirmed, register the winner in
	// ActiveElections' winners map, enqueue into ConfirmingSet,
	// schedule the async observer callback.
	OnConfirmed func(ctx context.Context, e *Election, winner hash.Hash, finalWeight amount.Amount, tally map[hash.Hash]amount.Amount)

	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
