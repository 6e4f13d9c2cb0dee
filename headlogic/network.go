package headlogic

import (
	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/partycrypto"
	"github.com/hydra-head/hydra-node/snapshot"
)

// stepNetwork dispatches one NetworkMessage against state (spec.md §4.3.2).
func stepNetwork(env Environment, state headstate.HeadState, in NetworkInput) Outcome {
	open, ok := state.(headstate.Open)
	if !ok {
		// Every message kind in the coordinated snapshot protocol only
		// applies to an Open head; anything else is dropped with a log
		// (spec.md §7), which here means: no state change, no effects.
		return unchanged(state)
	}

	switch msg := in.Msg.(type) {
	case ReqTx:
		return stepReqTx(env, open, in, msg)
	case ReqSn:
		return stepReqSn(env, open, msg)
	case AckSn:
		return stepAckSn(env, open, msg)
	default:
		return unchanged(state)
	}
}

// txApplyResult classifies the outcome of applying a transaction to a
// seenUtxo-like UTxOSet.
type txApplyResult int

const (
	txApplied txApplyResult = iota
	txInvalidResult
	txNotYetApplicable
)

// tryApplyTx attempts to apply tx to open's SeenUTxO, the shared logic
// behind both client-originated NewTx and peer-originated ReqTx (spec.md
// §4.3.2 "ReqTx handling"): on success it appends tx to SeenTxs and AllTxs
// and updates SeenUTxO.
func tryApplyTx(env Environment, open headstate.Open, tx ledger.Tx) (headstate.Open, txApplyResult, error) {
	if !env.Ledger.Applicable(open.Coordinated.SeenUTxO, tx) {
		return open, txNotYetApplicable, nil
	}

	newUTxO, err := env.Ledger.Apply(open.Coordinated.SeenUTxO, tx)
	if err != nil {
		return open, txInvalidResult, err
	}

	next := open
	next.Coordinated.SeenTxs = append(append([]ledger.Tx{}, open.Coordinated.SeenTxs...), tx)
	next.Coordinated.AllTxs = append(append([]ledger.Tx{}, open.Coordinated.AllTxs...), tx)
	next.Coordinated.SeenUTxO = newUTxO
	return next, txApplied, nil
}

func stepReqTx(env Environment, open headstate.Open, in NetworkInput, msg ReqTx) Outcome {
	next, result, err := tryApplyTx(env, open, msg.Tx)
	switch result {
	case txApplied:
		return Outcome{NewState: next, Effects: []Effect{ClientEffect{TxValid{Tx: msg.Tx}}}}
	case txInvalidResult:
		return unchanged(open, ClientEffect{TxInvalid{Tx: msg.Tx, ValidationError: err.Error()}})
	default: // txNotYetApplicable
		if effect := requeueReqTx(in); effect != nil {
			return unchanged(open, effect)
		}
		return unchanged(open)
	}
}

func stepReqSn(env Environment, open headstate.Open, msg ReqSn) Outcome {
	number := open.Coordinated.ConfirmedSnapshot.SnapshotNumber() + 1

	leader, err := open.Params.Leader(number)
	if err != nil || leader.VerificationKeyHex != msg.Leader.VerificationKeyHex {
		return unchanged(open) // sender is not the leader for this number: ignore
	}
	if msg.Number != number {
		return unchanged(open) // stale or premature proposal: ignore
	}
	if open.Coordinated.SeenSnapshot != nil {
		return unchanged(open) // a snapshot is already in flight: ignore
	}

	u := open.Coordinated.ConfirmedSnapshot.UTxOSet()
	for _, tx := range msg.Txs {
		if !containsTx(open.Coordinated.AllTxs, tx, env.Ledger) {
			return unchanged(open) // txs must already be known to this party
		}
		applied, err := env.Ledger.Apply(u, tx)
		if err != nil {
			return unchanged(open) // does not apply in order: ignore
		}
		u = applied
	}

	candidate := snapshot.Snapshot{Number: number, UTxO: u, ConfirmedTxs: msg.Txs}
	sig, err := env.Sign(candidate.Bytes(string(open.HeadID), env.Ledger))
	if err != nil {
		return unchanged(open)
	}

	next := open
	next.Coordinated.SeenSnapshot = &headstate.SeenSnapshot{
		Candidate: candidate,
		Sigs:      partycrypto.MultiSignature{env.Self.VerificationKeyHex: sig},
	}

	return Outcome{
		NewState: next,
		Effects: []Effect{
			NetworkBroadcast{AckSn{Party: env.Self, Sig: sig, Number: number}},
		},
	}
}

func stepAckSn(env Environment, open headstate.Open, msg AckSn) Outcome {
	seen := open.Coordinated.SeenSnapshot
	if seen == nil || msg.Number != seen.Candidate.Number {
		return unchanged(open)
	}

	bytes := seen.Candidate.Bytes(string(open.HeadID), env.Ledger)
	if !env.Verify(msg.Party.VerificationKeyHex, bytes, msg.Sig) {
		return unchanged(open) // drop: never trust or propagate an unverified signature
	}

	next := open
	nextSigs := cloneSigs(seen.Sigs)
	nextSigs[msg.Party.VerificationKeyHex] = msg.Sig
	next.Coordinated.SeenSnapshot = &headstate.SeenSnapshot{Candidate: seen.Candidate, Sigs: nextSigs}

	if !nextSigs.Covers(open.Params.Keys()) {
		return Outcome{NewState: next}
	}

	confirmed := snapshot.Confirmed{Snapshot: seen.Candidate, MultiSig: nextSigs}
	next.Coordinated.ConfirmedSnapshot = confirmed
	next.Coordinated.SeenSnapshot = nil
	next.Coordinated.SeenTxs = excludeTxs(next.Coordinated.SeenTxs, seen.Candidate.ConfirmedTxs, env.Ledger)
	next.Coordinated.AllTxs = excludeTxs(next.Coordinated.AllTxs, seen.Candidate.ConfirmedTxs, env.Ledger)
	next.Coordinated.LocalTxs = excludeTxs(next.Coordinated.LocalTxs, seen.Candidate.ConfirmedTxs, env.Ledger)

	effects := []Effect{ClientEffect{SnapshotConfirmed{Snapshot: seen.Candidate}}}
	next, initEffects := maybeInitiateSnapshot(env, next)
	effects = append(effects, initEffects...)

	return Outcome{NewState: next, Effects: effects}
}

// maybeInitiateSnapshot implements the leader-side snapshot initiation rule
// (spec.md §4.3.2): when this party is the leader for the next snapshot
// number, no snapshot is already in flight, and there is at least one
// locally-submitted transaction outstanding, broadcast a ReqSn.
func maybeInitiateSnapshot(env Environment, open headstate.Open) (headstate.Open, []Effect) {
	if open.Coordinated.SeenSnapshot != nil {
		return open, nil
	}
	if len(open.Coordinated.LocalTxs) == 0 {
		return open, nil
	}

	number := open.Coordinated.ConfirmedSnapshot.SnapshotNumber() + 1
	leader, err := open.Params.Leader(number)
	if err != nil || leader.VerificationKeyHex != env.Self.VerificationKeyHex {
		return open, nil
	}

	return open, []Effect{NetworkBroadcast{ReqSn{Leader: env.Self, Number: number, Txs: open.Coordinated.LocalTxs}}}
}

func cloneSigs(sigs partycrypto.MultiSignature) partycrypto.MultiSignature {
	out := make(partycrypto.MultiSignature, len(sigs)+1)
	for k, v := range sigs {
		out[k] = v
	}
	return out
}

func containsTx(txs []ledger.Tx, tx ledger.Tx, l ledger.Ledger) bool {
	target := l.TxBytes(tx)
	for _, t := range txs {
		if string(l.TxBytes(t)) == string(target) {
			return true
		}
	}
	return false
}

func excludeTxs(from []ledger.Tx, remove []ledger.Tx, l ledger.Ledger) []ledger.Tx {
	if len(remove) == 0 {
		return from
	}
	out := make([]ledger.Tx, 0, len(from))
	for _, tx := range from {
		if !containsTx(remove, tx, l) {
			out = append(out, tx)
		}
	}
	return out
}
