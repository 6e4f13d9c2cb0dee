package network

import (
	"sync"
	"time"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/party"
)

// DefaultHeartbeatInterval is T_hb (SPEC_FULL.md §5 Network): how often each
// peer is pinged.
const DefaultHeartbeatInterval = 3 * time.Second

// DefaultMissedHeartbeatThreshold is k: the number of consecutive missed
// heartbeats before a peer is declared disconnected.
const DefaultMissedHeartbeatThreshold = 3

// HeartbeatMonitor pings every known peer at Interval over a Transport and
// emits a NetworkLivenessInput each time a peer's connectivity flips,
// shared by all three Transport backends so the liveness story doesn't have
// to be reimplemented per-backend.
type HeartbeatMonitor struct {
	transport Transport
	interval  time.Duration
	threshold int

	mu      sync.Mutex
	peers   map[string]party.Party
	misses  map[string]int
	alive   map[string]bool

	events   chan headlogic.NetworkLivenessInput
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewHeartbeatMonitor builds a monitor pinging over transport every
// interval, declaring a peer down after threshold consecutive failures.
func NewHeartbeatMonitor(transport Transport, interval time.Duration, threshold int) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		transport: transport,
		interval:  interval,
		threshold: threshold,
		peers:     make(map[string]party.Party),
		misses:    make(map[string]int),
		alive:     make(map[string]bool),
		events:    make(chan headlogic.NetworkLivenessInput, 16),
		doneCh:    make(chan struct{}),
	}
}

// Events is the channel the node runtime's dequeue loop selects on to turn
// liveness changes into queued NetworkLivenessInput values.
func (m *HeartbeatMonitor) Events() <-chan headlogic.NetworkLivenessInput { return m.events }

// Track registers addr as a peer to heartbeat, identified by p.
func (m *HeartbeatMonitor) Track(p party.Party, addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[addr] = p
	m.alive[addr] = true
}

// Untrack stops heartbeating addr.
func (m *HeartbeatMonitor) Untrack(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.peers, addr)
	delete(m.misses, addr)
	delete(m.alive, addr)
}

// Start begins the background ping loop. Call Stop to end it.
func (m *HeartbeatMonitor) Start() {
	go m.run()
}

func (m *HeartbeatMonitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.doneCh:
			return
		case <-ticker.C:
			m.pingAll()
		}
	}
}

func (m *HeartbeatMonitor) pingAll() {
	m.mu.Lock()
	targets := make(map[string]party.Party, len(m.peers))
	for addr, p := range m.peers {
		targets[addr] = p
	}
	m.mu.Unlock()

	for addr, p := range targets {
		err := m.transport.SendHeartbeat(addr)
		m.record(addr, p, err == nil)
	}
}

func (m *HeartbeatMonitor) record(addr string, p party.Party, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ok {
		wasAlive := m.alive[addr]
		m.misses[addr] = 0
		m.alive[addr] = true
		if !wasAlive {
			m.emit(p, true)
		}
		return
	}

	m.misses[addr]++
	if m.misses[addr] >= m.threshold && m.alive[addr] {
		m.alive[addr] = false
		m.emit(p, false)
	}
}

func (m *HeartbeatMonitor) emit(p party.Party, connected bool) {
	select {
	case m.events <- headlogic.NetworkLivenessInput{Peer: p, Connected: connected}:
	default:
	}
}

// Stop ends the ping loop. Safe to call more than once.
func (m *HeartbeatMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.doneCh) })
}
