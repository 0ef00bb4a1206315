// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nanoconfig loads the recognized configuration options of
// spec.md §6 from TOML. Grounded on the teacher's config.Parameters /
// DefaultParams / network-preset shape (config/config.go,
// config/presets.go) and on original_source's
// rust/node/src/config/toml/daemon_toml.rs, which confirms TOML as
// the original daemon's config format.
package nanoconfig

import (
	"errors"
	"time"

	"github.com/BurntSushi/toml"
)

// Network selects the deployment profile; base_latency and a handful
// of other defaults key off it (spec §4.2, §4.6).
type Network string

const (
	NetworkLive Network = "live"
	NetworkBeta Network = "beta"
	NetworkTest Network = "test"
	NetworkDev  Network = "dev"
)

var (
	ErrInvalidNetwork = errors.New("nanoconfig: invalid network")
	ErrInvalidSize    = errors.New("nanoconfig: active_elections.size must be > 0")
)

// Config is the full set of recognized options from spec.md §6.
type Config struct {
	Network Network `toml:"network"`

	ActiveElections struct {
		Size                   int `toml:"size"`
		HintedLimitPercentage  int `toml:"hinted_limit_percentage"`
		OptimisticLimitPct     int `toml:"optimistic_limit_percentage"`
		ConfirmationHistSize   int `toml:"confirmation_history_size"`
		ConfirmationCacheSize  int `toml:"confirmation_cache"`
	} `toml:"active_elections"`

	VoteCache struct {
		MaxSize   int           `toml:"max_size"`
		MaxVoters int           `toml:"max_voters"`
		AgeCutoff time.Duration `toml:"age_cutoff"`
	} `toml:"vote_cache"`

	VoteProcessor struct {
		MaxPrQueue    int `toml:"max_pr_queue"`
		MaxNonPrQueue int `toml:"max_non_pr_queue"`
		PrPriority    int `toml:"pr_priority"`
		Threads       int `toml:"threads"`
		BatchSize     int `toml:"batch_size"`
	} `toml:"vote_processor"`

	VoteGeneratorDelay     time.Duration `toml:"vote_generator_delay"`
	VoteGeneratorThreshold int           `toml:"vote_generator_threshold"`
	VoteMinimum            uint64        `toml:"vote_minimum"`

	OnlineWeightMinimum             uint64 `toml:"online_weight_minimum"`
	RepresentativeVoteWeightMinimum uint64 `toml:"representative_vote_weight_minimum"`
	RepCrawlerWeightMinimum         uint64 `toml:"rep_crawler_weight_minimum"`

	EnableVoting bool `toml:"enable_voting"`

	Network_ struct {
		AecLoopInterval time.Duration `toml:"aec_loop_interval"`
	} `toml:"network_timing"`
}

// Default returns the spec §6 documented defaults.
func Default() Config {
	var c Config
	c.Network = NetworkLive
	c.ActiveElections.Size = 5000
	c.ActiveElections.HintedLimitPercentage = 20
	c.ActiveElections.OptimisticLimitPct = 10
	c.ActiveElections.ConfirmationHistSize = 2048
	c.ActiveElections.ConfirmationCacheSize = 65536
	c.VoteCache.MaxSize = 65536
	c.VoteCache.MaxVoters = 64
	c.VoteCache.AgeCutoff = 15 * time.Minute
	c.VoteProcessor.MaxPrQueue = 256
	c.VoteProcessor.MaxNonPrQueue = 32
	c.VoteProcessor.PrPriority = 3
	c.VoteProcessor.Threads = 4
	c.VoteProcessor.BatchSize = 1024
	c.VoteGeneratorDelay = 100 * time.Millisecond
	c.VoteGeneratorThreshold = 3
	c.EnableVoting = true
	c.Network_.AecLoopInterval = time.Second
	return c
}

// Live, Beta, Test and Dev mirror the teacher's MainnetParams /
// TestnetParams / LocalParams network presets (config/presets.go),
// adapted to this spec's base_latency rule (spec §4.2: 1s prod, 25ms
// dev).
func Live() Config {
	c := Default()
	c.Network = NetworkLive
	return c
}

func Beta() Config {
	c := Default()
	c.Network = NetworkBeta
	return c
}

func Test() Config {
	c := Default()
	c.Network = NetworkTest
	c.Network_.AecLoopInterval = 25 * time.Millisecond
	return c
}

func Dev() Config {
	c := Default()
	c.Network = NetworkDev
	c.Network_.AecLoopInterval = 25 * time.Millisecond
	c.ActiveElections.Size = 100
	return c
}

// BaseLatency returns base_latency for the configured network: 1s in
// prod networks, 25ms in dev (spec §4.2).
func (c Config) BaseLatency() time.Duration {
	if c.Network == NetworkDev {
		return 25 * time.Millisecond
	}
	return time.Second
}

// Load reads and validates a TOML config file, overlaying it on
// Default().
func Load(path string) (Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// Validate checks the recognized options for internal consistency.
func (c Config) Validate() error {
	switch c.Network {
	case NetworkLive, NetworkBeta, NetworkTest, NetworkDev:
	default:
		return ErrInvalidNetwork
	}
	if c.ActiveElections.Size <= 0 {
		return ErrInvalidSize
	}
	return nil
}
