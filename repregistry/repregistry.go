// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package repregistry tracks representative voting weight and the
// principal-rep threshold used throughout the election pipeline
// (spec §4.6 step 1, GLOSSARY "Principal rep").
//
// Grounded on the teacher's validators.Manager / validators.Set
// (validators/validators.go): a registry handing out weight lookups
// and a membership/sample surface, adapted here from node-light to
// representative-weight.
package repregistry

import (
	"sync"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
)

// Registry answers weight and principal-rep queries against the
// ledger's live weight table (ledger.Store.Weight), cached and
// periodically refreshed by the (out of scope) rep-crawler.
type Registry struct {
	mu          sync.RWMutex
	weights     map[hash.Hash]amount.Amount
	minWeight   amount.Amount
	isDevNet    bool
}

// New creates a Registry with the configured principal-rep minimum
// weight (representative_vote_weight_minimum, spec §6). isDevNet
// disables the principal-rep filter, matching spec §4.6 step 1 ("If
// not a principal rep ... and the network is not dev, return
// Indeterminate").
func New(minWeight amount.Amount, isDevNet bool) *Registry {
	return &Registry{
		weights:  make(map[hash.Hash]amount.Amount),
		minWeight: minWeight,
		isDevNet: isDevNet,
	}
}

// SetWeight records rep's current weight, called by the (out of
// scope) rep-crawler/ledger weight recomputation.
func (r *Registry) SetWeight(rep hash.Hash, w amount.Amount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weights[rep] = w
}

// Weight returns rep's currently known weight.
func (r *Registry) Weight(rep hash.Hash) amount.Amount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights[rep]
}

// IsPrincipal reports whether rep's weight clears the principal-rep
// threshold, or whether the principal-rep filter is disabled (dev net).
func (r *Registry) IsPrincipal(rep hash.Hash) bool {
	if r.isDevNet {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights[rep].GT(r.minWeight)
}

// Principals returns every rep whose weight is currently strictly
// above the principal threshold, used by ConfirmationSolicitor to build its per-round rep
// list (spec §4.11).
func (r *Registry) Principals() []hash.Hash {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]hash.Hash, 0, len(r.weights))
	for rep, w := range r.weights {
		if r.isDevNet || w.GT(r.minWeight) {
			out = append(out, rep)
		}
	}
	return out
}

// TotalOnlineWeight sums every known principal's weight, feeding
// collections/quorum.Tracker.Observe.
func (r *Registry) TotalOnlineWeight() amount.Amount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := amount.Zero
	for _, w := range r.weights {
		if r.isDevNet || w.GT(r.minWeight) {
			total = total.Add(w)
		}
	}
	return total
}
