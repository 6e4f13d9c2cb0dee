package headlogic

import (
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/partycrypto"
)

// NetworkMessage is one of ReqTx, ReqSn, AckSn, the three peer-protocol
// message kinds of the coordinated snapshot protocol (spec.md §4.3.2, §6).
// Every message is signed by its sender at the transport layer; by the time
// it reaches Step it has already been verified to actually come from
// Sender (spec.md §7: "malformed/unsigned/wrong-sender message: dropped
// with a log" happens in the network transport, never inside Step).
type NetworkMessage interface {
	isNetworkMessage()
}

// ReqTx requests that Tx be included in the open head's transaction set.
type ReqTx struct {
	Tx ledger.Tx
}

func (ReqTx) isNetworkMessage() {}

// ReqSn is a snapshot proposal broadcast by the leader for Number.
type ReqSn struct {
	Leader party.Party
	Number uint64
	Txs    []ledger.Tx
}

func (ReqSn) isNetworkMessage() {}

// AckSn is one party's signature over the canonical bytes of the candidate
// snapshot Number.
type AckSn struct {
	Party  party.Party
	Sig    partycrypto.Signature
	Number uint64
}

func (AckSn) isNetworkMessage() {}
