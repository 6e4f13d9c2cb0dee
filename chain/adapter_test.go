package chain

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/headlogic"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

type fakeSubmitter struct {
	mu   sync.Mutex
	txs  []headlogic.PostChainTx
	fail error
}

func (f *fakeSubmitter) Submit(tx headlogic.PostChainTx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.txs = append(f.txs, tx)
	return nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txs)
}

func TestAdapterObservePollsAndDeliversEvent(t *testing.T) {
	start := chainstate.State{Point: chainstate.Point{Slot: 1, Hash: "a"}}
	want := headlogic.ObservedInit{HeadID: "h", NewChain: chainstate.State{Point: chainstate.Point{Slot: 2, Hash: "b"}}}

	var calls int
	var mu sync.Mutex
	adapter := NewAdapter(start, 5*time.Millisecond, &fakeSubmitter{}, testLogger())
	defer adapter.Close()

	adapter.Observe(func(last chainstate.State) (*chainstate.State, headlogic.ChainEvent) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			ns := want.NewChain
			return &ns, want
		}
		return nil, nil
	})

	select {
	case ev := <-adapter.Events():
		require.Equal(t, want, ev)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for observed chain event")
	}
}

func TestAdapterPostSubmitsViaSubmitter(t *testing.T) {
	sub := &fakeSubmitter{}
	adapter := NewAdapter(chainstate.State{}, time.Hour, sub, testLogger())
	defer adapter.Close()
	adapter.Observe(func(chainstate.State) (*chainstate.State, headlogic.ChainEvent) { return nil, nil })

	tx := headlogic.InitTx{SeedTxIn: "seed#0"}
	adapter.Post(tx)

	require.Eventually(t, func() bool { return sub.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAdapterPostFailureReportedOnFailuresChannel(t *testing.T) {
	sub := &fakeSubmitter{fail: errors.New("network unreachable")}
	adapter := NewAdapter(chainstate.State{}, time.Hour, sub, testLogger())
	defer adapter.Close()
	adapter.Observe(func(chainstate.State) (*chainstate.State, headlogic.ChainEvent) { return nil, nil })

	tx := headlogic.InitTx{SeedTxIn: "seed#0"}
	adapter.Post(tx)

	select {
	case failure := <-adapter.Failures():
		require.Equal(t, tx, failure.Tx)
		require.Equal(t, "network unreachable", failure.Reason)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for post failure")
	}
}

func TestAdapterCloseStopsLoop(t *testing.T) {
	sub := &fakeSubmitter{}
	adapter := NewAdapter(chainstate.State{}, time.Millisecond, sub, testLogger())
	adapter.Observe(func(chainstate.State) (*chainstate.State, headlogic.ChainEvent) { return nil, nil })

	adapter.Close()
	adapter.Close() // must be safe to call twice

	adapter.Post(headlogic.InitTx{SeedTxIn: "seed#0"})
	require.Never(t, func() bool { return sub.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}
