package confirmingset

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nanolabs/consensuscore/collections/amount"
	"github.com/nanolabs/consensuscore/collections/hash"
	"github.com/nanolabs/consensuscore/ledger"
	"github.com/nanolabs/consensuscore/ledger/memledger"
)

type recordingObserver struct {
	mu              sync.Mutex
	cemented        []hash.Hash
	alreadyCemented []hash.Hash
}

func (o *recordingObserver) OnCemented(b ledger.Block) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cemented = append(o.cemented, b.Hash)
}

func (o *recordingObserver) OnAlreadyCemented(h hash.Hash) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.alreadyCemented = append(o.alreadyCemented, h)
}

func (o *recordingObserver) cementedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.cemented)
}

func (o *recordingObserver) alreadyCementedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.alreadyCemented)
}

func ch(b byte) hash.Hash {
	var h hash.Hash
	h[0] = b
	return h
}

func mustProcess(t *testing.T, store *memledger.Store, b ledger.Block) {
	t.Helper()
	tx, err := store.BeginWrite(context.Background())
	require.NoError(t, err)
	status, err := store.Process(tx, b)
	require.NoError(t, err)
	require.Equal(t, ledger.Progress, status)
	require.NoError(t, store.Commit(tx))
}

func TestConfirmingSet_CementsSimpleChainInOrder(t *testing.T) {
	store := memledger.New(map[hash.Hash]amount.Amount{})
	account := ch(1)
	genesis := ledger.Block{Hash: account, Account: account}
	send1 := ledger.Block{Hash: ch(2), Previous: genesis.Hash, Account: account}
	send2 := ledger.Block{Hash: ch(3), Previous: send1.Hash, Account: account}
	mustProcess(t, store, genesis)
	mustProcess(t, store, send1)
	mustProcess(t, store, send2)

	s := New(store, 16, nil, nil)
	obs := &recordingObserver{}
	s.Subscribe(obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Add(send2.Hash)

	require.Eventually(t, func() bool {
		return obs.cementedCount() == 3
	}, time.Second, time.Millisecond)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, []hash.Hash{genesis.Hash, send1.Hash, send2.Hash}, obs.cemented)
}

func TestConfirmingSet_AlreadyCementedFiresOnce(t *testing.T) {
	store := memledger.New(map[hash.Hash]amount.Amount{})
	account := ch(4)
	genesis := ledger.Block{Hash: account, Account: account}
	mustProcess(t, store, genesis)

	s := New(store, 16, nil, nil)
	obs := &recordingObserver{}
	s.Subscribe(obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Add(genesis.Hash)
	require.Eventually(t, func() bool {
		return obs.cementedCount() == 1
	}, time.Second, time.Millisecond)

	s.Add(genesis.Hash)
	require.Eventually(t, func() bool {
		return obs.alreadyCementedCount() == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, 1, obs.cementedCount())
}

func TestConfirmingSet_ReceiveWaitsForSourceCementationFirst(t *testing.T) {
	store := memledger.New(map[hash.Hash]amount.Amount{})
	sender := ch(10)
	receiver := ch(11)

	genesis := ledger.Block{Hash: sender, Account: sender}
	mustProcess(t, store, genesis)
	send1 := ledger.Block{Hash: ch(0x11), Previous: genesis.Hash, Account: sender, Link: receiver, LinkKind: ledger.LinkSend}
	mustProcess(t, store, send1)
	open := ledger.Block{Hash: ch(0x21), Account: receiver, Link: send1.Hash, LinkKind: ledger.LinkReceive}
	mustProcess(t, store, open)

	s := New(store, 16, nil, nil)
	obs := &recordingObserver{}
	s.Subscribe(obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Request the receive directly: its own account chain is just
	// [open], but the receive's cross-account source (send1) is not yet
	// cemented, so the walk pulls send1's whole uncemented chain in
	// ahead of it — genesis first, then send1, then the receive.
	s.Add(open.Hash)

	require.Eventually(t, func() bool {
		return obs.cementedCount() == 3
	}, time.Second, time.Millisecond)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, []hash.Hash{genesis.Hash, send1.Hash, open.Hash}, obs.cemented)
}

func TestConfirmingSet_MissingHashEmitsAlreadyCemented(t *testing.T) {
	store := memledger.New(map[hash.Hash]amount.Amount{})
	s := New(store, 16, nil, nil)
	obs := &recordingObserver{}
	s.Subscribe(obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Add(ch(0xFF))

	require.Eventually(t, func() bool {
		return obs.alreadyCementedCount() == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, 0, obs.cementedCount())
}
