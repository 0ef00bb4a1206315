// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memwallet is an in-memory Wallet test double holding
// ed25519 keys, standing in for the real wallet (out of scope per
// spec §1).
package memwallet

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/wallet"
)

// Wallet holds a fixed set of local representative keys.
type Wallet struct {
	keys []wallet.RepKey
}

// New creates a Wallet with count freshly generated representative keys.
func New(count int) (*Wallet, error) {
	w := &Wallet{}
	for i := 0; i < count; i++ {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		var acct hash.Hash
		copy(acct[:], pub)
		w.keys = append(w.keys, wallet.RepKey{Account: acct, Private: priv})
	}
	return w, nil
}

func (w *Wallet) VotingRepsCount() int { return len(w.keys) }

func (w *Wallet) ShouldRepublishVote(account hash.Hash) bool { return true }

func (w *Wallet) VotingKeys() []wallet.RepKey {
	out := make([]wallet.RepKey, len(w.keys))
	copy(out, w.keys)
	return out
}
