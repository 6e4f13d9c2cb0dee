package headlogic

import (
	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
)

// stepClient dispatches one ClientCommand against state (spec.md §4.3.1).
// Any command whose precondition fails yields CommandFailed and no state
// change, per the table's final row.
func stepClient(env Environment, state headstate.HeadState, cmd ClientCommand) Outcome {
	switch c := cmd.(type) {
	case InitCmd:
		return stepInit(env, state, cmd)
	case AbortCmd:
		return stepAbort(state, cmd)
	case CommitCmd:
		return stepCommit(env, state, cmd, c)
	case NewTxCmd:
		return stepNewTx(env, state, cmd, c)
	case GetUTxOCmd:
		return stepGetUTxO(state, cmd)
	case CloseCmd:
		return stepClose(state, cmd)
	case ContestCmd:
		return stepContest(state, cmd)
	case FanoutCmd:
		return stepFanout(state, cmd)
	default:
		return unchanged(state, ClientEffect{CommandFailed{Command: cmd, Reason: "unknown command"}})
	}
}

func commandFailed(state headstate.HeadState, cmd ClientCommand, reason string) Outcome {
	return unchanged(state, ClientEffect{CommandFailed{Command: cmd, Reason: reason}})
}

func stepInit(env Environment, state headstate.HeadState, cmd ClientCommand) Outcome {
	if _, ok := state.(headstate.Idle); !ok {
		return commandFailed(state, cmd, "head is not idle")
	}
	return Outcome{
		NewState: state,
		Effects: []Effect{OnChainEffect{InitTx{
			Params:   env.HeadParameters,
			SeedTxIn: env.SeedTxIn,
		}}},
	}
}

func stepAbort(state headstate.HeadState, cmd ClientCommand) Outcome {
	initial, ok := state.(headstate.Initial)
	if !ok {
		return commandFailed(state, cmd, "head is not in Initial state")
	}
	return Outcome{
		NewState: state,
		Effects:  []Effect{OnChainEffect{AbortTx{Committed: initial.Committed}}},
	}
}

func stepCommit(env Environment, state headstate.HeadState, cmd ClientCommand, c CommitCmd) Outcome {
	initial, ok := state.(headstate.Initial)
	if !ok {
		return commandFailed(state, cmd, "head is not in Initial state")
	}
	if initial.HasCommitted(env.Self) {
		return commandFailed(state, cmd, "party has already committed")
	}
	for _, ref := range c.UTxO.Refs() {
		if env.Ledger.IsLegacyOutput(ref) {
			return commandFailed(state, cmd, "unsupported legacy output")
		}
	}
	return Outcome{
		NewState: state,
		Effects:  []Effect{OnChainEffect{CommitTx{Party: env.Self, UTxO: c.UTxO}}},
	}
}

func stepNewTx(env Environment, state headstate.HeadState, cmd ClientCommand, c NewTxCmd) Outcome {
	open, ok := state.(headstate.Open)
	if !ok {
		return commandFailed(state, cmd, "head is not Open")
	}

	next, result, err := tryApplyTx(env, open, c.Tx)
	if result != txApplied {
		reason := "inputs not present in seen UTxO"
		if err != nil {
			reason = err.Error()
		}
		return unchanged(state, ClientEffect{TxInvalid{Tx: c.Tx, ValidationError: reason}})
	}

	next.Coordinated.LocalTxs = append(append([]ledger.Tx{}, open.Coordinated.LocalTxs...), c.Tx)

	effects := []Effect{
		NetworkBroadcast{ReqTx{Tx: c.Tx}},
		ClientEffect{TxValid{Tx: c.Tx}},
	}
	next, initEffects := maybeInitiateSnapshot(env, next)
	effects = append(effects, initEffects...)

	return Outcome{NewState: next, Effects: effects}
}

func stepGetUTxO(state headstate.HeadState, cmd ClientCommand) Outcome {
	open, ok := state.(headstate.Open)
	if !ok {
		return commandFailed(state, cmd, "head is not Open")
	}
	return unchanged(state, ClientEffect{GetUTxOResponse{UTxO: open.Coordinated.ConfirmedSnapshot.UTxOSet()}})
}

func stepClose(state headstate.HeadState, cmd ClientCommand) Outcome {
	open, ok := state.(headstate.Open)
	if !ok {
		return commandFailed(state, cmd, "head is not Open")
	}
	return Outcome{
		NewState: state,
		Effects:  []Effect{OnChainEffect{CloseTx{ConfirmedSnapshot: open.Coordinated.ConfirmedSnapshot}}},
	}
}

// stepContest posts a contest with this party's currently-held confirmed
// snapshot. A party only reaches Closed carrying the confirmedSnapshot it
// had at the moment of ObservedClose (CoordinatedState is discarded on that
// transition), so there is no separately-tracked "more recent local
// snapshot" to compare against here; see DESIGN.md for this simplification
// relative to spec.md's "local snapshot.number > closed.snapshot.number"
// precondition.
func stepContest(state headstate.HeadState, cmd ClientCommand) Outcome {
	closed, ok := state.(headstate.Closed)
	if !ok {
		return commandFailed(state, cmd, "head is not Closed")
	}
	return Outcome{
		NewState: state,
		Effects:  []Effect{OnChainEffect{ContestTx{ConfirmedSnapshot: closed.ConfirmedSnapshot}}},
	}
}

func stepFanout(state headstate.HeadState, cmd ClientCommand) Outcome {
	closed, ok := state.(headstate.Closed)
	if !ok {
		return commandFailed(state, cmd, "head is not Closed")
	}
	if !closed.ReadyToFanout {
		return commandFailed(state, cmd, "contestation period has not elapsed")
	}
	return Outcome{
		NewState: state,
		Effects:  []Effect{OnChainEffect{FanoutTx{UTxO: closed.ConfirmedSnapshot.UTxOSet()}}},
	}
}
