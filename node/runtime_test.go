package node

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/chain"
	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/network"
	"github.com/hydra-head/hydra-node/partycrypto"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/persistence"
	"github.com/hydra-head/hydra-node/queue"
)

type fakeTransport struct {
	mu       sync.Mutex
	reqTx    []string
	reqSn    []string
	ackSn    []string
	consumer chan network.RPC
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{consumer: make(chan network.RPC)}
}

func (f *fakeTransport) Listen()                     {}
func (f *fakeTransport) Consumer() <-chan network.RPC { return f.consumer }
func (f *fakeTransport) LocalAddr() string           { return "local" }
func (f *fakeTransport) AdvertiseAddr() string       { return "local" }
func (f *fakeTransport) Close() error                { return nil }

func (f *fakeTransport) SendReqTx(target string, msg headlogic.ReqTx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqTx = append(f.reqTx, target)
	return nil
}

func (f *fakeTransport) SendReqSn(target string, msg headlogic.ReqSn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqSn = append(f.reqSn, target)
	return nil
}

func (f *fakeTransport) SendAckSn(target string, msg headlogic.AckSn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ackSn = append(f.ackSn, target)
	return nil
}

func (f *fakeTransport) SendHeartbeat(target string) error { return nil }

func (f *fakeTransport) sentReqTxCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqTx)
}

type noopSubmitter struct{}

func (noopSubmitter) Submit(headlogic.PostChainTx) error { return nil }

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newTestRuntime(t *testing.T) (*Runtime, *fakeTransport) {
	t.Helper()

	priv, err := partycrypto.GenerateKey()
	require.NoError(t, err)
	self := party.Party{VerificationKeyHex: partycrypto.PublicKeyHex(&priv.PublicKey)}

	l := ledger.NewSimpleLedger()
	store := persistence.NewMemoryLog(l)
	transport := newFakeTransport()
	adapter := chain.NewAdapter(chainstate.State{}, time.Hour, noopSubmitter{}, testLogger())
	adapter.Observe(func(chainstate.State) (*chainstate.State, headlogic.ChainEvent) { return nil, nil })
	t.Cleanup(adapter.Close)

	peers := NewPeerBook()
	peers.Set(party.Party{VerificationKeyHex: "0xother"}, "addr-other")

	conf := DefaultConfig(self)
	conf.TickInterval = time.Hour
	conf.Logger = testLogger()

	sign := func(data []byte) (partycrypto.Signature, error) { return partycrypto.Sign(priv, data) }
	verify := func(hex string, data []byte, sig partycrypto.Signature) bool {
		return partycrypto.Verify(&priv.PublicKey, data, sig)
	}

	rt, err := NewRuntime(conf, queue.New(), transport, adapter, store, peers, l, sign, verify)
	require.NoError(t, err)
	return rt, transport
}

func TestRuntimeStartsIdleWhenStoreEmpty(t *testing.T) {
	rt, _ := newTestRuntime(t)
	require.IsType(t, headstate.Idle{}, rt.State())
}

func TestRuntimeStepPublishesCommandFailedAndPersists(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rt.Run(ctx)

	sub := rt.Outputs().Subscribe(4)
	defer rt.Outputs().Unsubscribe(sub)

	tx := ledger.SimpleTx{ID: "t1", Outputs: []string{"1"}}
	rt.Enqueue(headlogic.ClientInput{Command: headlogic.NewTxCmd{Tx: tx}})

	select {
	case out := <-sub:
		failed, ok := out.(headlogic.CommandFailed)
		require.True(t, ok, "expected CommandFailed, got %T", out)
		require.NotEmpty(t, failed.Reason)

		_, saved, err := rt.store.Load()
		require.NoError(t, err)
		require.True(t, saved, "expected the stepped state to be persisted")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for CommandFailed output")
	}
}

func TestRuntimeBroadcastsNetworkMessageToAllKnownPeers(t *testing.T) {
	rt, transport := newTestRuntime(t)
	rt.dispatch(headlogic.NetworkBroadcast{Msg: headlogic.ReqTx{Tx: ledger.SimpleTx{ID: "t1"}}})

	require.Eventually(t, func() bool { return transport.sentReqTxCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRuntimeDelayReenqueuesAfterDeadline(t *testing.T) {
	rt, _ := newTestRuntime(t)

	rt.dispatch(headlogic.Delay{Until: time.Now().Add(10 * time.Millisecond), Event: headlogic.Tick{Now: time.Now()}})

	require.Equal(t, 0, rt.queue.Len(), "delay must not enqueue before its deadline")
	require.Eventually(t, func() bool { return rt.queue.Len() == 1 }, time.Second, 5*time.Millisecond)
}
