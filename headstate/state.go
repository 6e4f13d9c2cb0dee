// Package headstate defines HeadState, the in-memory typed state of a head
// (spec.md §3, §4.4 C3). It is a sealed sum type -- the idiomatic Go
// substitute for the source's tagged union (spec.md §9's re-architecture
// note on heavy type-class polymorphism): one interface with an unexported
// marker method, and one struct per lifecycle stage, grounded on babble's
// node/state.State enum generalized from a flat enum to a tagged union
// because each stage here carries different data.
package headstate

import (
	"time"

	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/partycrypto"
	"github.com/hydra-head/hydra-node/snapshot"
)

// HeadState is implemented by Idle, Initial, Open, Closed, and Final.
type HeadState interface {
	// ChainState returns the embedded chain-observer view carried by every
	// lifecycle stage, so chain-driven code (headlogic/chain.go, the node
	// runtime's rollback checkpoints) doesn't need a type switch just to
	// read or replace it.
	ChainState() chainstate.State
	isHeadState()
}

// Idle is the state before any head has been observed opening (spec.md §3).
type Idle struct {
	Chain chainstate.State
}

func (s Idle) ChainState() chainstate.State { return s.Chain }
func (Idle) isHeadState()                   {}

// Initial is the state between an observed Init and an observed CollectCom
// (or Abort). Committed accumulates one UTxOSet per party that has
// committed so far, keyed by verification-key hex (spec.md invariant 3: at
// most one commit per party).
type Initial struct {
	HeadID    party.HeadId
	Params    party.Parameters
	Committed map[string]ledger.UTxOSet
	SeedTxIn  string
	Chain     chainstate.State
}

func (s Initial) ChainState() chainstate.State { return s.Chain }
func (Initial) isHeadState()                   {}

// HasCommitted reports whether p has already committed.
func (s Initial) HasCommitted(p party.Party) bool {
	_, ok := s.Committed[p.VerificationKeyHex]
	return ok
}

// AllCommitted reports whether every party in Params has committed.
func (s Initial) AllCommitted() bool {
	for _, p := range s.Params.Parties {
		if !s.HasCommitted(p) {
			return false
		}
	}
	return true
}

// SeenSnapshot is an in-flight snapshot proposal awaiting unanimous
// AckSn signatures (spec.md §4.3.2).
type SeenSnapshot struct {
	Candidate snapshot.Snapshot
	Sigs      partycrypto.MultiSignature
}

// CoordinatedState is the Open state's snapshot-protocol bookkeeping
// (spec.md §3 "coordinatedState").
type CoordinatedState struct {
	InitialUTxO       ledger.UTxOSet
	LocalTxs          []ledger.Tx
	SeenTxs           []ledger.Tx
	SeenUTxO          ledger.UTxOSet
	ConfirmedSnapshot snapshot.ConfirmedSnapshot
	SeenSnapshot      *SeenSnapshot
	AllTxs            []ledger.Tx
}

// Open is the state in which the head actively processes transactions and
// snapshots (spec.md §3).
type Open struct {
	HeadID      party.HeadId
	Params      party.Parameters
	Coordinated CoordinatedState
	Chain       chainstate.State
}

func (s Open) ChainState() chainstate.State { return s.Chain }
func (Open) isHeadState()                   {}

// Closed is the state after an on-chain Close, during the contestation
// period (spec.md §3).
type Closed struct {
	HeadID               party.HeadId
	Params               party.Parameters
	ConfirmedSnapshot    snapshot.ConfirmedSnapshot
	ContestationDeadline time.Time
	ReadyToFanout        bool
	Chain                chainstate.State
}

func (s Closed) ChainState() chainstate.State { return s.Chain }
func (Closed) isHeadState()                   {}

// Final is the terminal state, reached via Fanout or Abort (spec.md §3).
type Final struct {
	HeadID    party.HeadId
	FinalUTxO ledger.UTxOSet
	Chain     chainstate.State
}

func (s Final) ChainState() chainstate.State { return s.Chain }
func (Final) isHeadState()                   {}
