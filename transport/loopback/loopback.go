// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package loopback is a test double for transport.Transport that
// records every outbound message instead of sending it anywhere, and
// can optionally loop a publish/vote straight back into a Dispatcher
// to simulate a single-node network in tests.
package loopback

import (
	"context"
	"sync"

	"github.com/nanolabs/consensuscore/transport"
)

// Transport records everything sent through it.
type Transport struct {
	mu         sync.Mutex
	Published  []transport.Message
	Unicast    []transport.Message
	dispatcher transport.Dispatcher
}

// New creates a Transport. dispatcher may be nil if the test doesn't
// need loop-back delivery.
func New(dispatcher transport.Dispatcher) *Transport {
	return &Transport{dispatcher: dispatcher}
}

func (t *Transport) Flood(ctx context.Context, message transport.Message, drop transport.DropPolicy, scale float64) {
	t.mu.Lock()
	t.Published = append(t.Published, message)
	t.mu.Unlock()
}

func (t *Transport) TrySend(ctx context.Context, channel transport.ChannelID, message transport.Message, drop transport.DropPolicy, class transport.TrafficClass) bool {
	t.mu.Lock()
	t.Unicast = append(t.Unicast, message)
	t.mu.Unlock()
	return true
}

// Reset clears recorded messages, for use between test phases.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Published = nil
	t.Unicast = nil
}
