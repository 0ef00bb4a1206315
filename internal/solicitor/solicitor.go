// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package solicitor implements ConfirmationSolicitor (spec §2.11,
// §4.11): a per-request-loop-round batcher that rate-limits
// confirm-request and block-broadcast messages to peers.
//
// Grounded on the teacher's batching pattern in poll.Set (accumulate
// per-round, send once on flush), adapted from "one poll per
// validator" to "one confirm-request batch per principal rep".
package solicitor

import (
	"context"
	"time"

	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/nanolog"
	"github.com/nanolabs/consensuscore/transport"
)

// confirmReqInterval maps behavior to the send_confirm_req rate-limit
// multiplier of base_latency (spec §4.11: 5x Priority/Hinted, 2x
// Optimistic).
func confirmReqInterval(b election.Behavior, baseLatency time.Duration) time.Duration {
	if b == election.Optimistic {
		return 2 * baseLatency
	}
	return 5 * baseLatency
}

const blockBroadcastInterval = 500 * time.Millisecond

// Solicitor is ConfirmationSolicitor, rebuilt once per request-loop
// iteration with the round's principal-rep list (spec §4.11).
type Solicitor struct {
	principals  []hash.Hash
	transport   transport.Transport
	baseLatency time.Duration
	log         nanolog.Logger

	// votedThisRound tracks which principals have already been asked
	// about which winner this round, so Add never double-sends within
	// one flush (spec §4.11: "rate-limited per rep per round").
	votedThisRound map[hash.Hash]map[hash.Hash]bool

	confirmReqs []confirmReqBatch
	broadcasts  []ledger.Block
}

type confirmReqBatch struct {
	root   hash.QualifiedRoot
	winner hash.Hash
	peers  []hash.Hash
}

// New builds a Solicitor for one request-loop round.
func New(principals []hash.Hash, tr transport.Transport, baseLatency time.Duration, log nanolog.Logger) *Solicitor {
	if log == nil {
		log = nanolog.NoOp()
	}
	return &Solicitor{
		principals:     principals,
		transport:      tr,
		baseLatency:    baseLatency,
		log:            log,
		votedThisRound: make(map[hash.Hash]map[hash.Hash]bool),
	}
}

// Add queues a confirm-request for e's winner, to be sent to every
// principal not already asked about that winner earlier in this round
// (spec §4.11). Whether a principal has already voted on the election
// is not checked: principals that have voted are asked too. The caller
// (the request loop's transition_time pass) holds e's lock; Add must
// not take it again.
func (s *Solicitor) Add(e *election.Election) {
	root := e.Root()
	winner := e.Winner()
	last := e.LastConfirmReqAt()
	behavior := e.Behavior()

	if time.Since(last) < confirmReqInterval(behavior, s.baseLatency) {
		return
	}

	var peers []hash.Hash
	voted := s.votedThisRound[winner]
	if voted == nil {
		voted = make(map[hash.Hash]bool)
		s.votedThisRound[winner] = voted
	}
	for _, p := range s.principals {
		if voted[p] {
			continue
		}
		voted[p] = true
		peers = append(peers, p)
	}
	if len(peers) == 0 {
		return
	}
	s.confirmReqs = append(s.confirmReqs, confirmReqBatch{root: root, winner: winner, peers: peers})

	e.SetLastConfirmReqAt(time.Now())
}

// Broadcast schedules publication of e's winner block to all peers if
// the broadcast_block predicate fires (spec §4.11: "now -
// last_block_broadcast_at >= block_broadcast_interval OR the winner
// has changed since last broadcast"). Caller holds e's lock.
func (s *Solicitor) Broadcast(e *election.Election) {
	winner := e.Winner()
	block, ok := e.Candidate(winner)
	last := e.LastBlockBroadcastAt()
	changed := e.LastBroadcastWinner() != winner

	if !ok {
		return
	}
	if !changed && time.Since(last) < blockBroadcastInterval {
		return
	}
	s.broadcasts = append(s.broadcasts, block)

	e.SetLastBlockBroadcastAt(time.Now())
	e.SetLastBroadcastWinner(winner)
}

// Flush sends all batched messages (spec §4.11). Rep-account-to-peer
// routing is out of scope (spec §1); each rep's account hash doubles
// as its ChannelID, which loopback and a real dispatcher are free to
// resolve however their peer table works.
func (s *Solicitor) Flush() {
	if s.transport == nil {
		return
	}
	ctx := context.Background()
	for _, b := range s.confirmReqs {
		msg := transport.ConfirmReqMessage{Root: b.root, Winner: b.winner}
		for _, peer := range b.peers {
			s.transport.TrySend(ctx, transport.ChannelID(peer.String()), msg, transport.DropOldest, transport.ClassConfirmRequest)
		}
	}
	for _, block := range s.broadcasts {
		s.transport.Flood(ctx, transport.PublishMessage{Block: block.Hash}, transport.DropOldest, 1.0)
	}
	s.confirmReqs = nil
	s.broadcasts = nil
}
