// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport defines the outbound-publication interface the
// consensus core consumes (spec §6). The wire protocol, peer
// discovery and connection management are explicitly out of scope
// (spec §1); this package is the narrow seam ConfirmationSolicitor
// and VoteGenerators publish through.
package transport

import (
	"context"

	"github.com/nanolabs/consensuscore/collections/hash"
)

// DropPolicy mirrors the teacher's outbound back-pressure policy
// naming (spec §6: flood/try_send take a drop policy).
type DropPolicy int

const (
	DropNewest DropPolicy = iota
	DropOldest
)

// TrafficClass tags a unicast send for the transport's own internal
// QoS scheduling; the core only needs to pick a class, not implement one.
type TrafficClass int

const (
	ClassVoteReply TrafficClass = iota
	ClassBlockBroadcast
	ClassConfirmRequest
)

// Message is an opaque outbound payload; its wire encoding belongs to
// the (out of scope) transport layer.
type Message interface {
	Kind() string
}

// PublishMessage carries a winning block to peers.
type PublishMessage struct {
	Block hash.Hash
	Raw   []byte
}

func (PublishMessage) Kind() string { return "publish" }

// ConfirmReqMessage asks peers to vote on a root's current winner.
type ConfirmReqMessage struct {
	Root   hash.QualifiedRoot
	Winner hash.Hash
}

func (ConfirmReqMessage) Kind() string { return "confirm_req" }

// VoteMessage carries a signed vote to peers.
type VoteMessage struct {
	Representative hash.Hash
	Timestamp      uint64
	Hashes         []hash.Hash
	Signature      [64]byte
}

func (VoteMessage) Kind() string { return "vote" }

// ChannelID identifies a specific peer connection for unicast sends.
type ChannelID string

// Transport is the §6 consumed interface.
type Transport interface {
	// Flood broadcasts message to roughly sqrt(peers) * scale peers.
	Flood(ctx context.Context, message Message, drop DropPolicy, scale float64)
	// TrySend unicasts message to one channel.
	TrySend(ctx context.Context, channel ChannelID, message Message, drop DropPolicy, class TrafficClass) bool
}

// Dispatcher is what the (out of scope) message dispatcher feeds
// inbound wire messages into: Publish to BlockProcessor, ConfirmAck to
// VoteRouter (spec §6). It's defined here so loopback and tests can
// exercise the whole path without a real wire layer.
type Dispatcher interface {
	DispatchPublish(ctx context.Context, from ChannelID, block hash.Hash, raw []byte)
	DispatchConfirmAck(ctx context.Context, from ChannelID, vote VoteMessage)
}
