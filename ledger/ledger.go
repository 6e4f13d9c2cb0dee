// Package ledger defines the Ledger collaborator interface (spec.md §1, §9):
// transaction validation proper is out of the core's scope, but the core
// needs a fixed, small surface to apply and hash transactions against a
// UTxO set. Tx and UTxOSet are opaque to the rest of this repository — only
// a concrete Ledger implementation knows their shape, exactly as babble's
// hashgraph package is opaque to node except through the hashgraph.Store
// interface.
package ledger

import "github.com/hydra-head/hydra-node/common"

// Tx is an opaque transaction. The core never inspects it; it is handed
// back to a Ledger for validation/application and to the wire package for
// canonical/CBOR encoding.
type Tx interface{}

// OutputRef identifies one output of one transaction, the key type of a
// UTxOSet.
type OutputRef struct {
	TxID  string
	Index uint32
}

// UTxOSet is the abstract mapping from OutputRef to output value that
// spec.md §3 describes. The core treats it opaquely except for equality
// (Equal) — union/difference/apply are Ledger operations, not core ones.
type UTxOSet interface {
	// Equal reports whether two UTxOSets contain the same outputs.
	Equal(UTxOSet) bool
	// Bytes returns a canonical, deterministic byte serialization used by
	// the wire package to compute hash(utxo) for canonical snapshot bytes
	// (spec.md §4.3.2).
	Bytes() []byte
	// Refs lists the OutputRefs present, in a stable order, for iteration
	// (fan-out at Fanout time, size estimation for the boundary behavior in
	// spec.md §8).
	Refs() []OutputRef
}

// ValidationError is returned by Ledger.Apply when a transaction does not
// apply cleanly; its Error() text is surfaced verbatim in a TxInvalid output
// (spec.md §4.3.1, §7).
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

// Ledger is the collaborator that knows how to apply and encode
// transactions against a UTxOSet. headlogic is generic over this interface
// (spec.md §9's re-architecture note). SimpleLedger, in this package, is the
// only implementation; the node binary, the tests, and the property tests
// in headlogic all use it.
type Ledger interface {
	// Empty returns the zero UTxOSet (used before any commit is observed).
	Empty() UTxOSet

	// Union merges two UTxOSets (used to build Open.initialUtxo from all
	// committed UTxOSets at CollectCom time).
	Union(a, b UTxOSet) UTxOSet

	// Apply validates tx against utxo and, on success, returns the UTxOSet
	// that results from applying it. On failure it returns a
	// ValidationError describing why.
	Apply(utxo UTxOSet, tx Tx) (UTxOSet, error)

	// Applicable reports whether tx's inputs are fully present in utxo. A
	// tx that fails Applicable (but isn't yet proven invalid) is the
	// "not yet applicable" case in spec.md §4.3.2's ReqTx handling, and is
	// requeued with a decremented TTL rather than rejected outright.
	Applicable(utxo UTxOSet, tx Tx) bool

	// TxBytes returns the canonical byte encoding of a single transaction,
	// used both for canonical hashing (hash(confirmedTxs)) and as the
	// binary form behind the API's cbor-hex transaction representation
	// option (spec.md §6).
	TxBytes(tx Tx) []byte

	// IsLegacyOutput reports whether an output belongs to a non-native
	// (legacy) address type. Used at Commit time to reject such outputs
	// with common.UnsupportedLegacyOutput (spec.md §8 boundary behavior).
	IsLegacyOutput(ref OutputRef) bool

	// MarshalTx and UnmarshalTx give the persistence layer (§4.2) a way to
	// durably round-trip opaque Tx values it cannot otherwise inspect.
	// This is distinct from TxBytes: TxBytes is the protocol's canonical,
	// cross-party-agreed encoding, while Marshal/UnmarshalTx only need to
	// round-trip for one party's own local storage.
	MarshalTx(tx Tx) ([]byte, error)
	UnmarshalTx(data []byte) (Tx, error)

	// MarshalUTxO and UnmarshalUTxO give the persistence layer the same
	// round-trip ability for UTxOSet values.
	MarshalUTxO(u UTxOSet) ([]byte, error)
	UnmarshalUTxO(data []byte) (UTxOSet, error)
}

// ErrUnsupportedLegacyOutput wraps common.UnsupportedLegacyOutput with the
// offending reference for logging.
func ErrUnsupportedLegacyOutput(ref OutputRef) error {
	return common.New(common.UnsupportedLegacyOutput, ref.TxID)
}
