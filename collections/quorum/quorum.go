// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package quorum tracks the network's online representative weight
// and computes the confirmation delta (spec §4.6, GLOSSARY "Quorum /
// delta"): online_weight * 0.67, floored against a configured minimum.
//
// Grounded on the teacher's quorum.Static (mutex-guarded threshold
// accounting over a map of responses) — adapted here from a
// pass/fail response tally to a trended online-weight tracker.
package quorum

import (
	"sync"

	"github.com/nanolabs/consensuscore/collections/amount"
)

// deltaNumerator/deltaDenominator implement the 0.67 quorum fraction
// as an exact integer fraction rather than a float, so the delta
// computation never depends on floating point rounding.
const (
	deltaNumerator   = 67
	deltaDenominator = 100
)

// Tracker holds the network's trended online weight and the
// configured minimum, and answers online_delta() queries.
type Tracker struct {
	mu               sync.RWMutex
	onlineWeightMin  amount.Amount
	trendedOnline    amount.Amount
	currentObserved  amount.Amount
}

// NewTracker creates a Tracker with the given configured minimum
// online weight (config option online_weight_minimum, spec §6).
func NewTracker(onlineWeightMinimum amount.Amount) *Tracker {
	return &Tracker{onlineWeightMin: onlineWeightMinimum}
}

// Observe records the currently-online weight for this sampling
// period; callers call this once per online-weight sampling interval
// from the node's rep-crawler collaborator (out of scope here, but the
// observation point this type expects).
func (t *Tracker) Observe(weight amount.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentObserved = weight
	if weight.GT(t.trendedOnline) {
		t.trendedOnline = weight
	}
}

// Delta returns online_delta(): max(online_weight_minimum,
// trended_online_weight) * 0.67 (spec §4.6).
func (t *Tracker) Delta() amount.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	base := t.onlineWeightMin
	if t.trendedOnline.GT(base) {
		base = t.trendedOnline
	}
	return base.MulFraction(deltaNumerator, deltaDenominator)
}

// TrendedOnlineWeight returns the current trended figure, for
// diagnostics/telemetry.
func (t *Tracker) TrendedOnlineWeight() amount.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trendedOnline
}
