// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wallet defines the local-signing-key interface the
// consensus core consumes (spec §6). Key storage, derivation and the
// RPC-facing wallet itself are out of scope (spec §1); this is the
// narrow surface VoteGenerators reads from.
package wallet

import (
	"crypto/ed25519"

	"github.com/nanolabs/consensuscore/collections/hash"
)

// RepKey is one local representative's signing key, identified by its
// rep account hash.
type RepKey struct {
	Account hash.Hash
	Private ed25519.PrivateKey
}

// Wallet is the §6 consumed interface.
type Wallet interface {
	VotingRepsCount() int
	ShouldRepublishVote(account hash.Hash) bool
	VotingKeys() []RepKey
}
