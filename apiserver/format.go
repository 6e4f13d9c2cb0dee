package apiserver

import (
	"encoding/hex"
	"sort"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/snapshot"
)

// Options carries the per-connection output formatting switches spec.md §6
// describes: transaction representation and whether a snapshot's utxo field
// is included. They are applied at serialization time only, never inside
// headlogic.
type Options struct {
	TransactionMode string // "json" (default) or "cbor-hex"
	UTxOInSnapshot  string // "include" (default) or "omit"
}

// DefaultOptions matches the wire defaults a client gets when it supplies no
// query-string parameters.
func DefaultOptions() Options {
	return Options{TransactionMode: "json", UTxOInSnapshot: "include"}
}

// wireRef is the JSON shape of one ledger.OutputRef. UTxOSet is opaque
// beyond Refs()/Bytes()/Equal(), so this is the most a generic formatter can
// expose about a set's contents without reaching into a concrete ledger
// type.
type wireRef struct {
	TxID  string `json:"txId"`
	Index uint32 `json:"index"`
}

func encodeUTxOSet(u ledger.UTxOSet) []wireRef {
	if u == nil {
		return nil
	}
	refs := u.Refs()
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].TxID != refs[j].TxID {
			return refs[i].TxID < refs[j].TxID
		}
		return refs[i].Index < refs[j].Index
	})
	out := make([]wireRef, len(refs))
	for i, r := range refs {
		out[i] = wireRef{TxID: r.TxID, Index: r.Index}
	}
	return out
}

// encodeTx renders one transaction per o.TransactionMode: "cbor-hex" hex-
// encodes its canonical bytes (l.TxBytes), anything else passes the tx
// through for encoding/json to marshal using its own concrete field tags —
// every concrete Tx in this codebase is a plain exported-field struct, so
// this needs no ledger-specific JSON codec.
func (o Options) encodeTx(l ledger.Ledger, tx ledger.Tx) interface{} {
	if tx == nil {
		return nil
	}
	if o.TransactionMode == "cbor-hex" {
		return hex.EncodeToString(l.TxBytes(tx))
	}
	return tx
}

func (o Options) encodeTxs(l ledger.Ledger, txs []ledger.Tx) []interface{} {
	out := make([]interface{}, len(txs))
	for i, tx := range txs {
		out[i] = o.encodeTx(l, tx)
	}
	return out
}

// encodeSnapshot renders a snapshot.Snapshot, applying both formatting
// options: confirmedTransactions follows TransactionMode and utxo is
// dropped entirely when UTxOInSnapshot is "omit". The omission applies to
// SnapshotConfirmed outputs only: Envelope renders the confirmedSnapshot
// nested under PostTxOnChainFailed with UTxOInSnapshot forced to "include",
// while confirmedTransactions there still follows TransactionMode.
func (o Options) encodeSnapshot(l ledger.Ledger, s snapshot.Snapshot) map[string]interface{} {
	m := map[string]interface{}{
		"number":                s.Number,
		"confirmedTransactions": o.encodeTxs(l, s.ConfirmedTxs),
	}
	if o.UTxOInSnapshot != "omit" {
		m["utxo"] = encodeUTxOSet(s.UTxO)
	}
	return m
}

func (o Options) encodeConfirmedSnapshot(l ledger.Ledger, cs snapshot.ConfirmedSnapshot) interface{} {
	switch c := cs.(type) {
	case snapshot.Initial:
		m := map[string]interface{}{"number": c.SnapshotNumber()}
		if o.UTxOInSnapshot != "omit" {
			m["utxo"] = encodeUTxOSet(c.UTxO)
		}
		return m
	case snapshot.Confirmed:
		return map[string]interface{}{
			"number":         c.SnapshotNumber(),
			"snapshot":       o.encodeSnapshot(l, c.Snapshot),
			"multiSignature": c.MultiSig,
		}
	default:
		return nil
	}
}

func (o Options) encodePostChainTx(l ledger.Ledger, tx headlogic.PostChainTx) interface{} {
	switch t := tx.(type) {
	case headlogic.InitTx:
		return map[string]interface{}{"kind": "InitTx", "parameters": t.Params, "seedTxIn": t.SeedTxIn}
	case headlogic.CommitTx:
		return map[string]interface{}{"kind": "CommitTx", "party": t.Party, "utxo": encodeUTxOSet(t.UTxO)}
	case headlogic.AbortTx:
		return map[string]interface{}{"kind": "AbortTx", "committed": encodeUTxOSetMap(t.Committed)}
	case headlogic.CollectComTx:
		return map[string]interface{}{"kind": "CollectComTx", "committed": encodeUTxOSetMap(t.Committed)}
	case headlogic.CloseTx:
		return map[string]interface{}{"kind": "CloseTx", "confirmedSnapshot": o.encodeConfirmedSnapshot(l, t.ConfirmedSnapshot)}
	case headlogic.ContestTx:
		return map[string]interface{}{"kind": "ContestTx", "confirmedSnapshot": o.encodeConfirmedSnapshot(l, t.ConfirmedSnapshot)}
	case headlogic.FanoutTx:
		return map[string]interface{}{"kind": "FanoutTx", "utxo": encodeUTxOSet(t.UTxO)}
	default:
		return nil
	}
}

func encodeUTxOSetMap(m map[string]ledger.UTxOSet) map[string][]wireRef {
	out := make(map[string][]wireRef, len(m))
	for k, v := range m {
		out[k] = encodeUTxOSet(v)
	}
	return out
}

// commandKind names an inbound ClientCommand by the wire vocabulary spec.md
// §6 defines (Init/Abort/Commit/NewTx/GetUTxO/Close/Contest/Fanout), for
// echoing back in CommandFailed so a client can tell which of its own
// requests failed.
func commandKind(cmd headlogic.ClientCommand) string {
	switch cmd.(type) {
	case headlogic.InitCmd:
		return "Init"
	case headlogic.AbortCmd:
		return "Abort"
	case headlogic.CommitCmd:
		return "Commit"
	case headlogic.NewTxCmd:
		return "NewTx"
	case headlogic.GetUTxOCmd:
		return "GetUTxO"
	case headlogic.CloseCmd:
		return "Close"
	case headlogic.ContestCmd:
		return "Contest"
	case headlogic.FanoutCmd:
		return "Fanout"
	default:
		return "Unknown"
	}
}
