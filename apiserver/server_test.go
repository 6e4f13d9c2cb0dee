package apiserver

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/node"
)

type fakeRuntime struct {
	outputs *node.OutputBroadcaster
	state   headstate.HeadState
	queued  chan headlogic.Input
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		outputs: node.NewOutputBroadcaster(),
		state:   headstate.Idle{},
		queued:  make(chan headlogic.Input, 16),
	}
}

func (f *fakeRuntime) Outputs() *node.OutputBroadcaster { return f.outputs }
func (f *fakeRuntime) State() headstate.HeadState       { return f.state }
func (f *fakeRuntime) Enqueue(in headlogic.Input) uint64 {
	f.queued <- in
	return 1
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newTestServer(t *testing.T) (*Server, *fakeRuntime, *httptest.Server) {
	t.Helper()
	rt := newFakeRuntime()
	s := NewServer("", rt, ledger.NewSimpleLedger(), simpleTxDecoder(), simpleUTxODecoder(), 8, testLogger())

	mux := httptest.NewServer(s.Handler())
	t.Cleanup(mux.Close)
	return s, rt, mux
}

func dialWS(t *testing.T, httpURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(httpURL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerSendsGreetingsOnConnect(t *testing.T) {
	_, _, mux := newTestServer(t)
	conn := dialWS(t, mux.URL)

	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &env))
	require.Equal(t, "Greetings", env["tag"])
}

func TestServerForwardsBroadcastOutputToClient(t *testing.T) {
	_, rt, mux := newTestServer(t)
	conn := dialWS(t, mux.URL)

	_, _, err := conn.ReadMessage() // Greetings
	require.NoError(t, err)

	rt.outputs.Publish(headlogic.ReadyToFanout{})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &env))
	require.Equal(t, "ReadyToFanout", env["tag"])
}

func TestServerEnqueuesDecodedCommand(t *testing.T) {
	_, rt, mux := newTestServer(t)
	conn := dialWS(t, mux.URL)

	_, _, err := conn.ReadMessage() // Greetings
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"GetUTxO"}`)))

	select {
	case in := <-rt.queued:
		ci, ok := in.(headlogic.ClientInput)
		require.True(t, ok)
		require.IsType(t, headlogic.GetUTxOCmd{}, ci.Command)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for enqueued command")
	}
}

func TestServerReportsInvalidInputForMalformedCommand(t *testing.T) {
	_, _, mux := newTestServer(t)
	conn := dialWS(t, mux.URL)

	_, _, err := conn.ReadMessage() // Greetings
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &env))
	require.Equal(t, "InvalidInput", env["tag"])
}
