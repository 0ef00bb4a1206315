// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package votegenerator implements VoteGenerators (spec §2.12, §4.4):
// the normal and final local-representative vote generators that
// batch pending (root, winner) requests, sign one vote per locally
// held representative key, publish it to peers, and feed it back into
// the local VoteRouter so this node's own elections update without
// waiting on a network round-trip.
//
// Grounded on the teacher's confidence.binary / unary_quantum shared
// struct with a mode flag (confidence/binary.go: the same type
// handles both the unary and binary sampling case via a bool),
// adapted here to a Final bool distinguishing the irrevocable-vote
// generator from the revocable one. Library: crypto/ed25519 for
// signing (stdlib — the spec places key-derivation and signature *algorithms* out of scope,
// not the act of producing a signature over the interface wallet
// already exposes).
package votegenerator

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"sync"
	"time"

	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/internal/election"
	"github.com/nanolabs/consensuscore/internal/election/votehistory"
	"github.com/nanolabs/consensuscore/internal/voterouter"
	"github.com/nanolabs/consensuscore/nanolog"
	"github.com/nanolabs/consensuscore/transport"
	"github.com/nanolabs/consensuscore/wallet"
)

// DefaultBatchSize and DefaultDelay are spec §6's vote_generator
// defaults: flush on 12 pending hashes or every 100ms, whichever
// comes first.
const (
	DefaultBatchSize = 12
	DefaultDelay     = 100 * time.Millisecond
)

// VoteBroadcastInterval is spec §5's vote-broadcast suppression
// window (default 500ms), gating how often one election can trigger a
// fresh local vote.
const VoteBroadcastInterval = 500 * time.Millisecond

// Generator is one of the two VoteGenerators instances: Final stamps
// timestamp = MAX (irrevocable commitment, spec GLOSSARY "Final
// vote"); the non-final instance uses a real wall-clock timestamp.
type Generator struct {
	final     bool
	batchSize int
	delay     time.Duration

	wallet    wallet.Wallet
	transport transport.Transport
	router    *voterouter.Router
	history   *votehistory.History
	log       nanolog.Logger

	mu      sync.Mutex
	pending map[hash.QualifiedRoot]hash.Hash

	wake chan struct{}
}

// New creates a Generator. final selects the irrevocable-vote variant
// (spec §4.4: "the final generator stamps timestamp = MAX").
func New(final bool, batchSize int, delay time.Duration, w wallet.Wallet, tr transport.Transport, router *voterouter.Router, history *votehistory.History, log nanolog.Logger) *Generator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	if log == nil {
		log = nanolog.NoOp()
	}
	return &Generator{
		final:     final,
		batchSize: batchSize,
		delay:     delay,
		wallet:    w,
		transport: tr,
		router:    router,
		history:   history,
		log:       log,
		pending:   make(map[hash.QualifiedRoot]hash.Hash),
		wake:      make(chan struct{}, 1),
	}
}

// Add requests that hash be voted for on root, batched until the next
// flush (spec §4.4: "accepts add(root, hash) requests").
func (g *Generator) Add(root hash.QualifiedRoot, winner hash.Hash) {
	g.mu.Lock()
	g.pending[root] = winner
	full := len(g.pending) >= g.batchSize
	g.mu.Unlock()

	if full {
		select {
		case g.wake <- struct{}{}:
		default:
		}
	}
}

// Run drives the generator's dedicated goroutine until ctx is
// canceled (spec §5: "VoteGenerator workers (2, normal + final)").
func (g *Generator) Run(ctx context.Context) {
	ticker := time.NewTicker(g.delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.flush(ctx)
		case <-g.wake:
			g.flush(ctx)
		}
	}
}

// flush builds and publishes one signed vote per locally held
// representative key over every pending (root, winner) pair, records
// each key's pairs in LocalVoteHistory, then feeds the same vote back into the local VoteRouter (spec §4.4:
// "Broadcasts go to all peers via the transport; the same vote is
// also fed back to the local VoteRouter so the local election updates
// its tally").
func (g *Generator) flush(ctx context.Context) {
	g.mu.Lock()
	pending := g.pending
	g.pending = make(map[hash.QualifiedRoot]hash.Hash)
	g.mu.Unlock()

	if len(pending) == 0 || g.wallet == nil {
		return
	}

	hashes := make([]hash.Hash, 0, len(pending))
	for _, h := range pending {
		hashes = append(hashes, h)
	}

	for _, key := range g.wallet.VotingKeys() {
		if g.history != nil {
			for root, h := range pending {
				g.history.Record(root, h, g.timestamp())
			}
		}
		g.publish(ctx, key, hashes)
	}
}

// timestamp returns spec §3's final-vote marker (MAX) for the final
// generator, or the current wall-clock time for the normal one.
func (g *Generator) timestamp() uint64 {
	if g.final {
		return election.FinalTimestamp
	}
	return uint64(time.Now().UnixNano())
}

func (g *Generator) publish(ctx context.Context, key wallet.RepKey, hashes []hash.Hash) {
	ts := g.timestamp()
	digest := signingDigest(key.Account, ts, hashes)
	sig := ed25519.Sign(key.Private, digest)

	msg := transport.VoteMessage{Representative: key.Account, Timestamp: ts, Hashes: hashes}
	copy(msg.Signature[:], sig)

	if g.transport != nil {
		g.transport.Flood(ctx, msg, transport.DropOldest, 1.0)
	}

	if g.router == nil {
		return
	}
	// Fed back locally as Rebroadcast rather than Live: a locally
	// generated vote must never trip apply_vote's live-source cooldown
	// (spec §4.6 step 2), which exists to rate-limit noisy network
	// peers, not this node's own representatives.
	g.router.Vote(ctx, voterouter.Vote{
		Representative: key.Account,
		Timestamp:      ts,
		Hashes:         hashes,
	}, election.SourceRebroadcast)
}

// signingDigest builds the byte sequence a representative key signs
// over. The wire signature scheme itself is out of scope (spec §1
// Non-goals); this is the minimal deterministic encoding needed to
// exercise wallet.RepKey's ed25519 keys end to end in tests.
func signingDigest(rep hash.Hash, timestamp uint64, hashes []hash.Hash) []byte {
	buf := make([]byte, 0, hash.Size+8+len(hashes)*hash.Size)
	buf = append(buf, rep[:]...)
	var tsBytes [8]byte
	binary.BigEndian.PutUint64(tsBytes[:], timestamp)
	buf = append(buf, tsBytes[:]...)
	for _, h := range hashes {
		buf = append(buf, h[:]...)
	}
	return buf
}

// Pair bundles the normal and final generators and implements
// activeelections.VoteBroadcaster, i.e. Election's broadcast_vote
// trigger (spec §4.4).
type Pair struct {
	Normal *Generator
	Final  *Generator

	broadcastInterval time.Duration
}

// NewPair creates a Pair. broadcastInterval defaults to
// VoteBroadcastInterval if zero.
func NewPair(normal, final *Generator, broadcastInterval time.Duration) *Pair {
	if broadcastInterval <= 0 {
		broadcastInterval = VoteBroadcastInterval
	}
	return &Pair{Normal: normal, Final: final, broadcastInterval: broadcastInterval}
}

// BroadcastVote is Election.broadcast_vote (spec §4.4), called by
// ActiveElections' request loop for every Active election each round.
// The caller holds e's lock, the same contract as the other per-round
// collaborators (Solicitor.Add/Broadcast); BroadcastVote must not take
// it again.
func (p *Pair) BroadcastVote(ctx context.Context, e *election.Election, now time.Time) {
	if now.Sub(e.LastVoteAt()) < p.broadcastInterval {
		return
	}
	root := e.Root()
	winner := e.Winner()
	confirmed := e.State() == election.Confirmed || e.State() == election.ExpiredConfirmed
	haveQuorum := e.HaveQuorum()
	e.SetLastVoteAt(now)

	if confirmed || haveQuorum {
		p.Final.Add(root, winner)
		return
	}
	p.Normal.Add(root, winner)
}

// Run drives both generators' goroutines until ctx is canceled.
func (p *Pair) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); p.Normal.Run(ctx) }()
	go func() { defer wg.Done(); p.Final.Run(ctx) }()
	wg.Wait()
}
