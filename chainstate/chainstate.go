// Package chainstate holds the opaque, chain-observer-owned view of the
// head's on-chain footprint (spec.md §3 "ChainState"). It rolls back and
// forward monotonically with chain events; the core only ever replaces this
// value wholesale, never inspects or mutates it.
package chainstate

import "github.com/hydra-head/hydra-node/ledger"

// Point identifies a position in the underlying chain, used to decide how
// far a Rollback must undo (spec.md §4.3.3).
type Point struct {
	Slot uint64
	Hash string
}

// String gives a short human-readable identifier for logging.
func (p Point) String() string {
	return p.Hash
}

// State is the accumulated, chain-observer-owned state: the current chain
// point and the UTxOs currently sitting at the head's script addresses.
type State struct {
	Point      Point
	ScriptUTxO ledger.UTxOSet
}
