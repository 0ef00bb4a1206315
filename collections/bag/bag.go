// Package bag provides a generic weighted counter, the same shape as
// the teacher's utils/bag.Bag but carrying amount.Amount weights
// instead of plain int counts — the primitive the election tally
// (spec §4.6, §2.6) is built on.
package bag

import "github.com/nanolabs/consensuscore/collections/amount"

// Bag accumulates weight per key. Zero value is not usable; use New.
type Bag[K comparable] struct {
	weights map[K]amount.Amount
	total   amount.Amount
}

// New returns an empty Bag.
func New[K comparable]() Bag[K] {
	return Bag[K]{weights: make(map[K]amount.Amount)}
}

// Add adds w to the running weight for key k.
func (b *Bag[K]) Add(k K, w amount.Amount) {
	if b.weights == nil {
		b.weights = make(map[K]amount.Amount)
	}
	b.weights[k] = b.weights[k].Add(w)
	b.total = b.total.Add(w)
}

// Weight returns the accumulated weight for k.
func (b *Bag[K]) Weight(k K) amount.Amount {
	return b.weights[k]
}

// Total returns the sum of all weights added (spec invariant 6:
// sum(block_weights) <= total_supply — callers are responsible for
// only ever adding weights that respect that bound).
func (b *Bag[K]) Total() amount.Amount {
	return b.total
}

// Len returns the number of distinct keys.
func (b *Bag[K]) Len() int {
	return len(b.weights)
}

// Leaders returns the key with the greatest weight and the key with
// the second-greatest weight, breaking ties by the supplied less
// function (DESIGN.md Open Question 1: deterministic, arbitrary
// tie-break). If the bag has fewer than two keys, the missing slot's
// weight is the zero amount.
func (b *Bag[K]) Leaders(less func(a, b K) bool) (leader K, leaderWeight amount.Amount, runnerUp K, runnerUpWeight amount.Amount) {
	first := true
	for k, w := range b.weights {
		switch {
		case first:
			leader, leaderWeight = k, w
			first = false
		case w.GT(leaderWeight) || (w.Cmp(leaderWeight) == 0 && less(k, leader)):
			runnerUp, runnerUpWeight = leader, leaderWeight
			leader, leaderWeight = k, w
		case w.GT(runnerUpWeight) || (w.Cmp(runnerUpWeight) == 0 && less(k, runnerUp)):
			runnerUp, runnerUpWeight = k, w
		}
	}
	return
}

// Keys returns every key that has been added, in unspecified order.
func (b *Bag[K]) Keys() []K {
	out := make([]K, 0, len(b.weights))
	for k := range b.weights {
		out = append(out, k)
	}
	return out
}
