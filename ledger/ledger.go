// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger defines the block/account store interface consumed
// by the consensus core (spec §6). The real implementation is an
// LMDB-backed block store and is explicitly out of scope (spec §1);
// this package only defines the data model and the narrow interface
// BlockProcessor and ConfirmingSet need, plus an in-memory reference
// implementation (memledger) for tests.
//
// Grounded on the interface-plus-stub-impl shape used throughout the
// teacher's validators package (validators.State interface next to a
// concrete ValidatorImpl).
package ledger

import (
	"context"
	"errors"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
)

// LinkKind distinguishes what a block's Link field means (spec §3).
type LinkKind int

const (
	LinkNone LinkKind = iota
	LinkSend
	LinkReceive
	LinkChange
	LinkEpoch
)

// Block is the immutable record defined in spec §3.
type Block struct {
	Hash           hash.Hash
	Previous       hash.Hash // zero for an open block
	Account        hash.Hash
	Representative hash.Hash
	Balance        amount.Amount
	Link           hash.Hash
	LinkKind       LinkKind
	Signature      [64]byte
	Work           uint64
}

// Root returns previous if non-zero, else account (spec §3).
func (b Block) Root() hash.Hash {
	if !b.Previous.IsZero() {
		return b.Previous
	}
	return b.Account
}

// QualifiedRoot returns (root, previous) — the fork-contested slot key.
func (b Block) QualifiedRoot() hash.QualifiedRoot {
	return hash.QualifiedRoot{Root: b.Root(), Previous: b.Previous}
}

// BlockStatus is the ledger's verdict on processing a block (spec §4.1).
type BlockStatus int

const (
	Progress BlockStatus = iota
	Old
	GapPrevious
	GapSource
	BadSignature
	NegativeSpend
	Fork
	Unreceivable
	GapEpochOpenPending
	BlockPosition
	InsufficientWork
	BalanceMismatch
	RepresentativeMismatch
	OpenedBurnAccount
)

func (s BlockStatus) String() string {
	switch s {
	case Progress:
		return "Progress"
	case Old:
		return "Old"
	case GapPrevious:
		return "GapPrevious"
	case GapSource:
		return "GapSource"
	case BadSignature:
		return "BadSignature"
	case NegativeSpend:
		return "NegativeSpend"
	case Fork:
		return "Fork"
	case Unreceivable:
		return "Unreceivable"
	case GapEpochOpenPending:
		return "GapEpochOpenPending"
	case BlockPosition:
		return "BlockPosition"
	case InsufficientWork:
		return "InsufficientWork"
	case BalanceMismatch:
		return "BalanceMismatch"
	case RepresentativeMismatch:
		return "RepresentativeMismatch"
	case OpenedBurnAccount:
		return "OpenedBurnAccount"
	default:
		return "Unknown"
	}
}

// AccountInfo is the ledger's head-of-chain record for an account.
type AccountInfo struct {
	Head           hash.Hash
	Representative hash.Hash
	OpenBlock      hash.Hash
	Balance        amount.Amount
	BlockCount     uint64
	ConfirmedHeight uint64
}

// ErrNoTransaction is returned by store operations invoked outside a
// Tx, guarding the spec §5 rule that every write goes through a
// transaction opened by BlockProcessor or ConfirmingSet.
var ErrNoTransaction = errors.New("ledger: operation requires a transaction")

// Tx is a ledger transaction handle. Read transactions may be opened
// freely by any reader; write transactions are exclusive to one
// writer at a time (spec §5, §6).
type Tx interface {
	// Writable reports whether this is a write transaction.
	Writable() bool
}

// Store is the narrow slice of the full block store the consensus
// core depends on (spec §6).
type Store interface {
	BeginRead(ctx context.Context) (Tx, error)
	BeginWrite(ctx context.Context) (Tx, error)
	Commit(tx Tx) error
	Abort(tx Tx)

	Process(tx Tx, block Block) (BlockStatus, error)
	GetBlock(tx Tx, h hash.Hash) (Block, bool)
	BlockExistsOrPruned(tx Tx, h hash.Hash) bool

	Confirm(tx Tx, h hash.Hash) error
	IsConfirmed(tx Tx, h hash.Hash) bool
	CementedCount() uint64

	Weight(rep hash.Hash) amount.Amount

	AccountInfo(tx Tx, account hash.Hash) (AccountInfo, bool)

	// Successor returns the next block after h on its account chain,
	// used by ConfirmingSet to walk an account chain forward from its
	// open block up to the target hash (spec §4.8).
	Successor(tx Tx, h hash.Hash) (hash.Hash, bool)
}

// RolledBack is the payload of the blocks_rolled_back callback (spec
// §4.1): one block removed during fork resolution, its own qualified
// root, and whether it was the initially-requested rollback target
// (the "initial" flag) or a dependent rolled back as a side effect.
type RolledBack struct {
	Hash    hash.Hash
	Root    hash.QualifiedRoot
	Initial bool
}
