// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hash provides the fixed-size content-address type used
// throughout the consensus core for block hashes, account ids,
// representative ids and roots.
package hash

import (
	"encoding/hex"
	"errors"
)

// Size is the width, in bytes, of every Hash in the system.
const Size = 32

// Hash is a 32-byte content address. It is comparable and usable as a
// map key, matching how block hashes, accounts and roots are used as
// keys throughout the election and routing tables.
type Hash [Size]byte

// Zero is the zero hash, used as the sentinel "no predecessor" marker
// for open blocks.
var Zero Hash

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Zero
}

// Less reports whether h sorts before o, lexicographically over the
// raw bytes. Used for the deterministic tie-break on equal tallies
// (see DESIGN.md, Open Question 1) and for VoteCode replay detection
// (spec §4.6 step 2).
func (h Hash) Less(o Hash) bool {
	for i := range h {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// FromBytes copies b into a Hash, erroring if the length doesn't match.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, errors.New("hash: wrong length")
	}
	copy(h[:], b)
	return h, nil
}

// FromHex parses a hex-encoded hash, as used in test fixtures and logs.
func FromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	return FromBytes(b)
}

// QualifiedRoot distinguishes forks across accounts: the root a block
// set contends over, paired with the specific previous hash that seeded
// it (spec §3).
type QualifiedRoot struct {
	Root     Hash
	Previous Hash
}
