package network

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/party"
)

// scriptedTransport answers SendHeartbeat per-target according to a
// scripted sequence of results, popping one result per call.
type scriptedTransport struct {
	Transport
	mu      sync.Mutex
	results map[string][]error
}

func (s *scriptedTransport) SendHeartbeat(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.results[target]
	if len(rs) == 0 {
		return nil
	}
	next := rs[0]
	s.results[target] = rs[1:]
	return next
}

func TestHeartbeatMonitorEmitsDisconnectAfterThreshold(t *testing.T) {
	peer := party.Party{VerificationKeyHex: "0xpeer"}
	failing := errors.New("unreachable")
	transport := &scriptedTransport{results: map[string][]error{
		"addr": {failing, failing, failing},
	}}

	m := NewHeartbeatMonitor(transport, 5*time.Millisecond, 3)
	m.Track(peer, "addr")
	m.Start()
	defer m.Stop()

	select {
	case ev := <-m.Events():
		require.Equal(t, headlogic.NetworkLivenessInput{Peer: peer, Connected: false}, ev)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for disconnect event")
	}
}

func TestHeartbeatMonitorDoesNotEmitBelowThreshold(t *testing.T) {
	peer := party.Party{VerificationKeyHex: "0xpeer"}
	failing := errors.New("unreachable")
	transport := &scriptedTransport{results: map[string][]error{
		"addr": {failing}, // only one miss, threshold is 3
	}}

	m := NewHeartbeatMonitor(transport, 5*time.Millisecond, 3)
	m.Track(peer, "addr")
	m.Start()
	defer m.Stop()

	select {
	case ev := <-m.Events():
		t.Fatalf("unexpected liveness event before threshold: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHeartbeatMonitorEmitsReconnectAfterRecovery(t *testing.T) {
	peer := party.Party{VerificationKeyHex: "0xpeer"}
	failing := errors.New("unreachable")
	transport := &scriptedTransport{results: map[string][]error{
		"addr": {failing, failing, failing, nil},
	}}

	m := NewHeartbeatMonitor(transport, 5*time.Millisecond, 3)
	m.Track(peer, "addr")
	m.Start()
	defer m.Stop()

	// first event: disconnect
	<-m.Events()

	select {
	case ev := <-m.Events():
		require.Equal(t, headlogic.NetworkLivenessInput{Peer: peer, Connected: true}, ev)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reconnect event")
	}
}

func TestHeartbeatMonitorUntrackStopsPinging(t *testing.T) {
	peer := party.Party{VerificationKeyHex: "0xpeer"}
	failing := errors.New("unreachable")
	// three misses would trip a disconnect if "addr" were still pinged
	transport := &scriptedTransport{results: map[string][]error{
		"addr": {failing, failing, failing},
	}}

	m := NewHeartbeatMonitor(transport, 5*time.Millisecond, 3)
	m.Track(peer, "addr")
	m.Untrack("addr")
	m.Start()
	defer m.Stop()

	select {
	case ev := <-m.Events():
		t.Fatalf("unexpected event after untrack: %+v", ev)
	case <-time.After(30 * time.Millisecond):
	}
}
