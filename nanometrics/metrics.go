// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nanometrics registers the prometheus counters/gauges named
// in spec.md §7/§8 — dropped or rejected blocks, vote codes,
// cache-replay counts, fork-replacement evictions, election outcomes.
//
// Grounded on the teacher's metrics.Metrics (thin Registerer wrapper,
// metrics/metrics.go) and poll/default.go's prometheus.NewRegistry()
// wiring.
package nanometrics

import "github.com/prometheus/client_golang/prometheus"

// Stats is the process-wide counter registry for the consensus core.
type Stats struct {
	BlocksDropped      *prometheus.CounterVec // label "source": source class on queue-full, ledger status on rejection
	VotesProcessed     *prometheus.CounterVec // label: code
	CacheReplays       prometheus.Counter
	ForkEvictions      prometheus.Counter
	ElectionsConfirmed *prometheus.CounterVec // label: behavior
	ElectionsExpired   *prometheus.CounterVec // label: behavior
	ElectionsStarted   *prometheus.CounterVec // label: behavior
	BlocksCemented     prometheus.Counter
	AlreadyCemented    prometheus.Counter
	LiveElections      prometheus.Gauge
}

// New builds and registers a Stats instance against reg. reg may be a
// prometheus.NewRegistry() (tests) or prometheus.DefaultRegisterer
// (production), matching the teacher's Metrics.Register pattern.
func New(reg prometheus.Registerer) *Stats {
	s := &Stats{
		BlocksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nano", Subsystem: "block_processor", Name: "dropped_total",
			Help: "Blocks dropped from a full processor queue (by source class) or rejected by the ledger (by status).",
		}, []string{"source"}),
		VotesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nano", Subsystem: "vote_router", Name: "processed_total",
			Help: "Votes processed by the resulting VoteCode.",
		}, []string{"code"}),
		CacheReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nano", Subsystem: "vote_cache", Name: "replays_total",
			Help: "Votes replayed from the vote cache into a newly admitted election.",
		}),
		ForkEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nano", Subsystem: "active_elections", Name: "fork_evictions_total",
			Help: "Candidates evicted by fork-replacement-by-weight.",
		}),
		ElectionsConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nano", Subsystem: "active_elections", Name: "confirmed_total",
			Help: "Elections that reached Confirmed, by admission behavior.",
		}, []string{"behavior"}),
		ElectionsExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nano", Subsystem: "active_elections", Name: "expired_total",
			Help: "Elections that expired unconfirmed, by admission behavior.",
		}, []string{"behavior"}),
		ElectionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nano", Subsystem: "active_elections", Name: "started_total",
			Help: "Elections admitted, by admission behavior.",
		}, []string{"behavior"}),
		BlocksCemented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nano", Subsystem: "confirming_set", Name: "cemented_total",
			Help: "Blocks cemented.",
		}),
		AlreadyCemented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nano", Subsystem: "confirming_set", Name: "already_cemented_total",
			Help: "Cementation requests for blocks already cemented.",
		}),
		LiveElections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nano", Subsystem: "active_elections", Name: "live",
			Help: "Currently live election count.",
		}),
	}
	for _, c := range []prometheus.Collector{
		s.BlocksDropped, s.VotesProcessed, s.CacheReplays, s.ForkEvictions,
		s.ElectionsConfirmed, s.ElectionsExpired, s.ElectionsStarted,
		s.BlocksCemented, s.AlreadyCemented, s.LiveElections,
	} {
		_ = reg.Register(c)
	}
	return s
}
