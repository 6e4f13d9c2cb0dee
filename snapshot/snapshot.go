// Package snapshot implements the snapshot protocol's core data types:
// Snapshot, ConfirmedSnapshot, and the canonical byte encoding every party
// signs over (spec.md §3, §4.3.2). It is grounded structurally on babble's
// hashgraph/block.go, which plays the analogous role of bundling a set of
// transactions with a sequence number and a set of per-validator signatures.
package snapshot

import (
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/partycrypto"
	"github.com/hydra-head/hydra-node/wire"
)

// Snapshot is a party-proposed, monotone record of the head's UTxO set and
// the ordered sequence of transactions that produced it from the prior
// confirmed snapshot (spec.md §3). Snapshot number 0 is the initial
// snapshot: the post-commit UTxO set with an empty tx list.
type Snapshot struct {
	Number       uint64
	UTxO         ledger.UTxOSet
	ConfirmedTxs []ledger.Tx
}

// Bytes computes the canonical, signable byte encoding of this snapshot
// (spec.md §4.3.2): headId ‖ number ‖ hash(utxo) ‖ hash(confirmedTxs). l is
// needed only to obtain each transaction's canonical bytes; it performs no
// validation here.
func (s Snapshot) Bytes(headID string, l ledger.Ledger) []byte {
	utxoHash := partycrypto.SHA256(s.UTxO.Bytes())

	var txBlob []byte
	for _, tx := range s.ConfirmedTxs {
		txBlob = append(txBlob, l.TxBytes(tx)...)
	}
	txsHash := partycrypto.SHA256(txBlob)

	return wire.CanonicalSnapshotBytes(headID, s.Number, utxoHash, txsHash)
}

// ConfirmedSnapshot is either the head's Initial post-commit state (no
// signatures needed, it is derived from on-chain commits observed by every
// party) or a Confirmed snapshot carrying a MultiSignature from every party
// (spec.md §3).
type ConfirmedSnapshot interface {
	// SnapshotNumber is 0 for Initial, and the signed number otherwise.
	SnapshotNumber() uint64
	// UTxOSet is the UTxO set this confirmed snapshot attests to.
	UTxOSet() ledger.UTxOSet
	isConfirmedSnapshot()
}

// Initial is the ConfirmedSnapshot produced directly from the union of all
// parties' committed UTxO sets once CollectCom is observed (spec.md §4.3.3).
type Initial struct {
	UTxO ledger.UTxOSet
}

func (i Initial) SnapshotNumber() uint64  { return 0 }
func (i Initial) UTxOSet() ledger.UTxOSet { return i.UTxO }
func (i Initial) isConfirmedSnapshot()    {}

// Confirmed is a ConfirmedSnapshot backed by a full-party MultiSignature
// over Snapshot.Bytes (spec.md invariant 2, testable property 7).
type Confirmed struct {
	Snapshot Snapshot
	MultiSig partycrypto.MultiSignature
}

func (c Confirmed) SnapshotNumber() uint64  { return c.Snapshot.Number }
func (c Confirmed) UTxOSet() ledger.UTxOSet { return c.Snapshot.UTxO }
func (c Confirmed) isConfirmedSnapshot()    {}
