package network

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newLoopbackTransport(t *testing.T, local party.Party) *PeerTransport {
	t.Helper()
	trans, err := NewTCPTransport("127.0.0.1:0", "", ledger.NewSimpleLedger(), local, 2, time.Second, quietLogger())
	require.NoError(t, err)
	go trans.Listen()
	t.Cleanup(func() { trans.Close() })
	return trans
}

func TestPeerTransportSendReqTxDeliversToConsumer(t *testing.T) {
	sender := party.Party{VerificationKeyHex: "0xsender"}
	client := newLoopbackTransport(t, sender)
	server := newLoopbackTransport(t, party.Party{VerificationKeyHex: "0xserver"})

	tx := ledger.SimpleTx{ID: "t1", Outputs: []string{"1"}}

	errCh := make(chan error, 1)
	go func() { errCh <- client.SendReqTx(server.AdvertiseAddr(), headlogic.ReqTx{Tx: tx}) }()

	select {
	case rpc := <-server.Consumer():
		require.Equal(t, sender, rpc.Sender)
		require.Equal(t, headlogic.ReqTx{Tx: tx}, rpc.Message)
		rpc.Respond(nil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for RPC")
	}

	require.NoError(t, <-errCh)
}

func TestPeerTransportHeartbeatCarriesNoMessage(t *testing.T) {
	client := newLoopbackTransport(t, party.Party{VerificationKeyHex: "0xclient"})
	server := newLoopbackTransport(t, party.Party{VerificationKeyHex: "0xserver"})

	errCh := make(chan error, 1)
	go func() { errCh <- client.SendHeartbeat(server.AdvertiseAddr()) }()

	select {
	case rpc := <-server.Consumer():
		require.Nil(t, rpc.Message)
		rpc.Respond(nil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for heartbeat RPC")
	}
	require.NoError(t, <-errCh)
}

func TestPeerTransportSurfacesPeerRejection(t *testing.T) {
	client := newLoopbackTransport(t, party.Party{VerificationKeyHex: "0xclient"})
	server := newLoopbackTransport(t, party.Party{VerificationKeyHex: "0xserver"})

	tx := ledger.SimpleTx{ID: "bad"}
	errCh := make(chan error, 1)
	go func() { errCh <- client.SendReqTx(server.AdvertiseAddr(), headlogic.ReqTx{Tx: tx}) }()

	rpc := <-server.Consumer()
	rpc.Respond(errors.New("rejected for test"))

	require.Error(t, <-errCh)
}

func TestPeerTransportCloseStopsListening(t *testing.T) {
	trans := newLoopbackTransport(t, party.Party{VerificationKeyHex: "0xsolo"})
	trans.Close()
	trans.Close() // idempotent
	require.True(t, trans.isShutdown())
}
