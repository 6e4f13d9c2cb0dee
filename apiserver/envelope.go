package apiserver

import (
	"time"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/ledger"
)

// Envelope wraps every delivered ClientOutput with the {seq, timestamp, tag}
// header spec.md §6 requires, plus the output's own payload fields.
func (o Options) Envelope(seq uint64, ts time.Time, l ledger.Ledger, out headlogic.ClientOutput) map[string]interface{} {
	env := map[string]interface{}{
		"seq":       seq,
		"timestamp": ts.UTC().Format(time.RFC3339Nano),
		"tag":       out.Tag(),
	}

	switch v := out.(type) {
	case headlogic.PeerConnected:
		env["peer"] = v.Peer
	case headlogic.PeerDisconnected:
		env["peer"] = v.Peer
	case headlogic.HeadIsInitializing:
		env["headId"] = v.HeadID
		env["parameters"] = v.Params
	case headlogic.Committed:
		env["party"] = v.Party
		env["utxo"] = encodeUTxOSet(v.UTxO)
	case headlogic.HeadIsOpen:
		env["headId"] = v.HeadID
		env["utxo"] = encodeUTxOSet(v.InitialUTxO)
	case headlogic.HeadIsClosed:
		env["snapshotNumber"] = v.SnapshotNumber
		env["deadline"] = v.Deadline.UTC().Format(time.RFC3339Nano)
	case headlogic.HeadIsContested:
		env["snapshotNumber"] = v.SnapshotNumber
	case headlogic.ReadyToFanout:
		// no payload fields beyond the header
	case headlogic.HeadIsAborted:
		env["utxo"] = encodeUTxOSet(v.UTxO)
	case headlogic.HeadIsFinalized:
		env["utxo"] = encodeUTxOSet(v.UTxO)
	case headlogic.CommandFailed:
		env["command"] = commandKind(v.Command)
		env["reason"] = v.Reason
	case headlogic.TxValid:
		env["transaction"] = o.encodeTx(l, v.Tx)
	case headlogic.TxInvalid:
		env["transaction"] = o.encodeTx(l, v.Tx)
		env["validationError"] = v.ValidationError
	case headlogic.SnapshotConfirmed:
		env["snapshot"] = o.encodeSnapshot(l, v.Snapshot)
	case headlogic.GetUTxOResponse:
		env["utxo"] = encodeUTxOSet(v.UTxO)
	case headlogic.InvalidInput:
		env["reason"] = v.Reason
	case headlogic.Greetings:
		env["headId"] = v.HeadID
	case headlogic.PostTxOnChainFailed:
		// utxoInSnapshot applies to SnapshotConfirmed only, so snapshots
		// nested here always keep their utxo field.
		withUTxO := o
		withUTxO.UTxOInSnapshot = "include"
		env["postChainTx"] = withUTxO.encodePostChainTx(l, v.Tx)
		env["reason"] = v.Reason
	case headlogic.RolledBack:
		env["toPoint"] = v.ToPoint
	}

	return env
}
