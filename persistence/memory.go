package persistence

import (
	"sync"

	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
)

// MemoryLog is an in-process Store backed by a mutex-guarded byte slice. It
// round-trips through the same Encode/Decode path as BadgerLog and FileLog
// so tests exercise the real wire format rather than a shortcut, grounded on
// babble's hashgraph.InmemStore playing the equivalent role for
// hashgraph.Store in unit tests.
type MemoryLog struct {
	mu     sync.Mutex
	ledger ledger.Ledger
	bytes  []byte
	saved  bool
}

// NewMemoryLog returns a MemoryLog that encodes/decodes HeadState values
// using l.
func NewMemoryLog(l ledger.Ledger) *MemoryLog {
	return &MemoryLog{ledger: l}
}

// Load implements Store.
func (m *MemoryLog) Load() (headstate.HeadState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.saved {
		return nil, false, nil
	}
	s, err := Decode(m.ledger, m.bytes)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Save implements Store.
func (m *MemoryLog) Save(s headstate.HeadState) error {
	b, err := Encode(m.ledger, s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes = b
	m.saved = true
	return nil
}

// Close implements Store; MemoryLog holds no external resources.
func (m *MemoryLog) Close() error { return nil }
