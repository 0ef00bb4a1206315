// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memledger is an in-memory Store, standing in for the real
// LMDB block store (out of scope per spec §1) so the consensus core
// can be exercised end-to-end in tests and by the cmd/consensusd demo
// binary.
package memledger

import (
	"context"
	"sync"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/ledger"
)

type tx struct{ writable bool }

func (t *tx) Writable() bool { return t.writable }

// Store is a single-writer, many-reader in-memory ledger. writeMu
// serializes write transactions (spec §5: the write handle is
// exclusive to one writer); dataMu is a leaf lock taken briefly
// around every map access so concurrent read transactions never race
// an in-flight writer.
type Store struct {
	writeMu sync.Mutex
	dataMu  sync.RWMutex

	blocks    map[hash.Hash]ledger.Block
	successor map[hash.Hash]hash.Hash // previous -> next, within one account chain
	accounts  map[hash.Hash]ledger.AccountInfo
	cemented  map[hash.Hash]bool
	weights   map[hash.Hash]amount.Amount

	cementedCount uint64
	writeLocked   bool
}

// New creates an empty Store. weights supplies each representative's
// voting weight (normally derived from the ledger itself; injected
// here since memledger has no real account balances to sum).
func New(weights map[hash.Hash]amount.Amount) *Store {
	return &Store{
		blocks:    make(map[hash.Hash]ledger.Block),
		successor: make(map[hash.Hash]hash.Hash),
		accounts:  make(map[hash.Hash]ledger.AccountInfo),
		cemented:  make(map[hash.Hash]bool),
		weights:   weights,
	}
}

func (s *Store) BeginRead(ctx context.Context) (ledger.Tx, error) {
	return &tx{writable: false}, nil
}

func (s *Store) BeginWrite(ctx context.Context) (ledger.Tx, error) {
	s.writeMu.Lock()
	s.writeLocked = true
	return &tx{writable: true}, nil
}

func (s *Store) Commit(t ledger.Tx) error {
	if tt, ok := t.(*tx); ok && tt.writable && s.writeLocked {
		s.writeLocked = false
		s.writeMu.Unlock()
	}
	return nil
}

func (s *Store) Abort(t ledger.Tx) {
	if tt, ok := t.(*tx); ok && tt.writable && s.writeLocked {
		s.writeLocked = false
		s.writeMu.Unlock()
	}
}

// Process implements the ledger status machine for the subset of
// cases this in-memory store models: a fresh open block, a correct
// continuation (Progress), a duplicate (Old), or a conflicting
// previous (Fork). Gap/signature/work/balance checks are the real
// ledger's job and are not modeled here.
func (s *Store) Process(t ledger.Tx, b ledger.Block) (ledger.BlockStatus, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()

	if _, exists := s.blocks[b.Hash]; exists {
		return ledger.Old, nil
	}

	if b.Previous.IsZero() {
		if _, open := s.accounts[b.Account]; open {
			return ledger.Fork, nil
		}
		s.blocks[b.Hash] = b
		s.accounts[b.Account] = ledger.AccountInfo{
			Head: b.Hash, Representative: b.Representative,
			OpenBlock: b.Hash, Balance: b.Balance, BlockCount: 1,
		}
		return ledger.Progress, nil
	}

	info, ok := s.accounts[b.Account]
	if !ok {
		return ledger.GapPrevious, nil
	}
	if info.Head != b.Previous {
		// Previous already has a successor recorded and it isn't us:
		// a genuine fork on this root.
		if existing, has := s.successor[b.Previous]; has && existing != b.Hash {
			return ledger.Fork, nil
		}
		if info.Head != b.Previous {
			return ledger.Fork, nil
		}
	}

	s.blocks[b.Hash] = b
	s.successor[b.Previous] = b.Hash
	info.Head = b.Hash
	info.Representative = b.Representative
	info.Balance = b.Balance
	info.BlockCount++
	s.accounts[b.Account] = info
	return ledger.Progress, nil
}

func (s *Store) GetBlock(t ledger.Tx, h hash.Hash) (ledger.Block, bool) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	b, ok := s.blocks[h]
	return b, ok
}

func (s *Store) BlockExistsOrPruned(t ledger.Tx, h hash.Hash) bool {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	_, ok := s.blocks[h]
	return ok
}

func (s *Store) Confirm(t ledger.Tx, h hash.Hash) error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if !s.cemented[h] {
		s.cemented[h] = true
		s.cementedCount++
	}
	return nil
}

func (s *Store) IsConfirmed(t ledger.Tx, h hash.Hash) bool {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return s.cemented[h]
}

func (s *Store) CementedCount() uint64 {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return s.cementedCount
}

func (s *Store) Weight(rep hash.Hash) amount.Amount {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return s.weights[rep]
}

func (s *Store) AccountInfo(t ledger.Tx, account hash.Hash) (ledger.AccountInfo, bool) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	info, ok := s.accounts[account]
	return info, ok
}

func (s *Store) Successor(t ledger.Tx, h hash.Hash) (hash.Hash, bool) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	n, ok := s.successor[h]
	return n, ok
}

// SetWeight lets tests adjust representative weight after construction.
func (s *Store) SetWeight(rep hash.Hash, w amount.Amount) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.weights[rep] = w
}
