// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command consensusd runs the consensus core standalone against an
// in-memory ledger, wallet and loopback transport — a single-node demo
// harness, not a production daemon (the LMDB store, real transport,
// bootstrap and RPC are out of scope per spec §1).
//
// Grounded on the teacher's "single clean import surface" composition
// pattern (consensus.go) and original_source/node/src/node.rs's
// top-level wiring order. No pack dependency is left to wire a CLI
// framework for a daemon with no subcommands, so this uses the
// standard library's flag package (DESIGN.md stdlib justification).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/ledger/memledger"
	"github.com/nanolabs/consensuscore/nanoconfig"
	"github.com/nanolabs/consensuscore/nanolog"
	"github.com/nanolabs/consensuscore/node"
	"github.com/nanolabs/consensuscore/repregistry"
	"github.com/nanolabs/consensuscore/transport/loopback"
	"github.com/nanolabs/consensuscore/wallet/memwallet"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional, defaults to network presets)")
	network := flag.String("network", "dev", "network preset: live, beta, test, dev")
	repCount := flag.Int("reps", 4, "number of local representative keys to generate")
	flag.Parse()

	logger := nanolog.NoOp()

	cfg, err := loadConfig(*configPath, *network)
	if err != nil {
		fmt.Fprintln(os.Stderr, "consensusd: config load failed:", err)
		os.Exit(1)
	}

	w, err := memwallet.New(*repCount)
	if err != nil {
		fmt.Fprintln(os.Stderr, "consensusd: wallet init failed:", err)
		os.Exit(1)
	}

	weights := repregistry.New(amount.FromUint64(cfg.RepresentativeVoteWeightMinimum), cfg.Network == nanoconfig.NetworkDev)
	for _, k := range w.VotingKeys() {
		weights.SetWeight(k.Account, amount.FromUint64(100))
	}

	store := memledger.New(map[hash.Hash]amount.Amount{})
	tr := loopback.New(nil)

	n := node.New(cfg, node.Deps{
		Store:     store,
		Transport: tr,
		Wallet:    w,
		Weights:   weights,
		Log:       logger,
	}, node.Callbacks{
		OnElectionStarted: func(h hash.Hash) {
			fmt.Printf("consensusd: election started %s\n", h)
		},
		OnBlockCemented: func(b ledger.Block) {
			fmt.Printf("consensusd: cemented %s\n", b.Hash)
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("consensusd: starting on network=%s reps=%d\n", cfg.Network, *repCount)
	n.Run(ctx)
	fmt.Println("consensusd: stopped")
}

func loadConfig(path, network string) (nanoconfig.Config, error) {
	if path != "" {
		return nanoconfig.Load(path)
	}
	switch network {
	case "live":
		return nanoconfig.Live(), nil
	case "beta":
		return nanoconfig.Beta(), nil
	case "test":
		return nanoconfig.Test(), nil
	default:
		return nanoconfig.Dev(), nil
	}
}
