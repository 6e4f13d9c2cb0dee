// Package headlogic implements the deterministic head-protocol state
// machine (spec.md §4.3, C4): Step(env, state, input) -> Outcome. It is
// pure and performs no I/O, grounded structurally on hashgraph.go's
// decomposition of one large algorithm into named stages
// (divideRounds/decideFame/findOrder) — here, client.go/network.go/chain.go
// each own one of the three input sources, and step.go is only a dispatch
// switch over them.
package headlogic

import (
	"time"

	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/partycrypto"
)

// Checkpoint pairs a chain point with the HeadState that was current when
// the head observed that point, kept so a Rollback can revert to the most
// recent consistent state (spec.md §4.3.3). The node runtime owns the ring
// buffer of these; Step only ever reads it, keeping Step itself pure.
type Checkpoint struct {
	Point chainstate.Point
	State headstate.HeadState
}

// Environment carries everything Step needs that isn't part of HeadState
// itself: local identity, signing capability, and the checkpoint history
// used to satisfy Rollback. It is supplied fresh by the node runtime on
// every call; Step never mutates it.
type Environment struct {
	// Self identifies this party's own verification key.
	Self party.Party

	// Sign produces this party's signature over canonical bytes, backed by
	// the local private key. Step never touches key material directly.
	Sign func(data []byte) (partycrypto.Signature, error)

	// Verify checks a signature against a party's verification key.
	Verify func(verificationKeyHex string, data []byte, sig partycrypto.Signature) bool

	// Ledger is the collaborator that knows how to validate and encode
	// transactions (spec.md §9's re-architecture note).
	Ledger ledger.Ledger

	// HeadParameters is this node's configured party set and contestation
	// period, the params half of InitTx(params, seed) (spec.md §4.3.1's
	// Init row). Step never mutates it; it is config, not state.
	HeadParameters party.Parameters

	// SeedTxIn anchors the head being initialized, the seed half of
	// InitTx(params, seed) (spec.md §3's Initial.seedTxIn).
	SeedTxIn string

	// Checkpoints is the chain-point history available for Rollback,
	// oldest first. The node runtime maintains this as a bounded ring; Step
	// only searches it.
	Checkpoints []Checkpoint

	// TTLInitial is the number of times a ReqTx whose inputs are not yet
	// applicable is requeued before being dropped (spec.md §8 property 9;
	// the exact default is implementation-defined per spec.md §9's open
	// questions — see DESIGN.md).
	TTLInitial uint32

	// ContestationExtension is the amount by which an observed Contest
	// extends the contestation deadline (spec.md §9 open question: "exact
	// rule ... not spelled out here; treat as a configurable policy" —
	// resolution recorded in DESIGN.md).
	ContestationExtension time.Duration
}
