// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package election implements the per-root Election state machine,
// its weighted tally, vote application (spec §4.6) and confirmation
// transition (spec §4.7) — spec components 2.4 and 2.6.
//
// Grounded on the teacher's confidence.threshold (confidence/threshold.go):
// a running confidence counter that resets on disagreement and fires
// once a beta-like streak clears an alpha-like threshold. Here the
// "confidence" axis is replaced by accumulated weighted tally and the
// threshold by online_delta(), but the accumulate/reset/fire shape is
// the same one the teacher uses for unary/binary sampling.
package election

import (
	"time"

	"github.com/nanolabs/consensuscore/collections/hash"
)

// State is an Election's lifecycle stage (spec §3).
type State int

const (
	Passive State = iota
	Active
	Confirmed
	ExpiredConfirmed
	ExpiredUnconfirmed
)

func (s State) String() string {
	switch s {
	case Passive:
		return "Passive"
	case Active:
		return "Active"
	case Confirmed:
		return "Confirmed"
	case ExpiredConfirmed:
		return "ExpiredConfirmed"
	case ExpiredUnconfirmed:
		return "ExpiredUnconfirmed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further state transition is expected.
func (s State) Terminal() bool {
	return s == ExpiredConfirmed || s == ExpiredUnconfirmed
}

// Behavior is an Election's admission class (spec §3, §4.9).
type Behavior int

const (
	Priority Behavior = iota
	Hinted
	Optimistic
)

func (b Behavior) String() string {
	switch b {
	case Priority:
		return "priority"
	case Hinted:
		return "hinted"
	case Optimistic:
		return "optimistic"
	default:
		return "unknown"
	}
}

// Source tags where a vote arrived from, feeding the cooldown rule in
// apply_vote (spec §4.6 step 2) and the backpressure class ordering
// (spec §5, §7).
type Source int

const (
	SourceLive Source = iota
	SourceRebroadcast
	SourceCache
)

// VoteRecord is one representative's last recorded vote on an election
// (spec §3 "last_votes").
type VoteRecord struct {
	Hash       hash.Hash
	Timestamp  uint64
	ReceivedAt time.Time
}

// FinalTimestamp is the irrevocable-commitment marker (spec GLOSSARY
// "Final vote"): timestamp == MAX.
const FinalTimestamp = ^uint64(0)

// MaxCandidates is the hard per-election candidate cap (spec §3).
const MaxCandidates = 10

// PassiveFactor is the multiple of base_latency an election waits in
// Passive before moving to Active (spec §4.2).
const PassiveFactor = 5
