package headlogic

import (
	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/snapshot"
)

// stepChain dispatches one ChainEvent against state (spec.md §4.3.3).
func stepChain(env Environment, state headstate.HeadState, event ChainEvent) Outcome {
	if rb, ok := event.(Rollback); ok {
		return stepRollback(env, state, rb)
	}

	switch e := event.(type) {
	case ObservedInit:
		return stepObservedInit(env, state, e)
	case ObservedCommit:
		return stepObservedCommit(env, state, e)
	case ObservedCollectCom:
		return stepObservedCollectCom(env, state, e)
	case ObservedAbort:
		return stepObservedAbort(env, state, e)
	case ObservedClose:
		return stepObservedClose(state, e)
	case ObservedContest:
		return stepObservedContest(env, state, e)
	case ObservedFanout:
		return stepObservedFanout(state, e)
	default:
		return unchanged(state)
	}
}

// checkpointed wraps outcome with a Checkpoint recording the chain point and
// state the transition just produced, so a later Rollback can revert to it
// (spec.md §4.3.3: "persist a small ring of prior (HeadState, chainPoint)
// pairs").
func checkpointed(point chainstate.Point, outcome Outcome) Outcome {
	outcome.Checkpoint = &Checkpoint{Point: point, State: outcome.NewState}
	return outcome
}

func stepObservedInit(env Environment, state headstate.HeadState, e ObservedInit) Outcome {
	if _, ok := state.(headstate.Idle); !ok {
		return unchanged(state)
	}
	// Observation filtering (spec.md §4.3.4): an init whose party set does
	// not include self is not this party's head.
	if !e.Params.Contains(env.Self) {
		return unchanged(state)
	}

	next := headstate.Initial{
		HeadID:    e.HeadID,
		Params:    e.Params,
		Committed: map[string]ledger.UTxOSet{},
		SeedTxIn:  e.SeedTxIn,
		Chain:     e.NewChain,
	}

	return checkpointed(e.NewChain.Point, Outcome{
		NewState: next,
		Effects:  []Effect{ClientEffect{HeadIsInitializing{HeadID: e.HeadID, Params: e.Params}}},
	})
}

func stepObservedCommit(env Environment, state headstate.HeadState, e ObservedCommit) Outcome {
	initial, ok := state.(headstate.Initial)
	if !ok {
		return unchanged(state)
	}
	if !initial.Params.Contains(e.Party) {
		return unchanged(state)
	}
	// Commit linearity (spec.md §8 property 5): a second observation of the
	// same party's commit is a no-op.
	if initial.HasCommitted(e.Party) {
		return checkpointed(e.NewChain.Point, unchanged(state))
	}

	next := initial
	next.Committed = make(map[string]ledger.UTxOSet, len(initial.Committed)+1)
	for k, v := range initial.Committed {
		next.Committed[k] = v
	}
	next.Committed[e.Party.VerificationKeyHex] = e.UTxO
	next.Chain = e.NewChain

	effects := []Effect{ClientEffect{Committed{Party: e.Party, UTxO: e.UTxO}}}
	// Once every party's commit has been observed, ask the chain to
	// collect them into the opening snapshot (spec.md §4.3.3: "Initial when
	// local policy sees all commits observed -> emit
	// OnChainEffect(CollectComTx)").
	if next.AllCommitted() {
		committed := make(map[string]ledger.UTxOSet, len(next.Committed))
		for k, v := range next.Committed {
			committed[k] = v
		}
		effects = append(effects, OnChainEffect{CollectComTx{Committed: committed}})
	}

	return checkpointed(e.NewChain.Point, Outcome{
		NewState: next,
		Effects:  effects,
	})
}

func stepObservedCollectCom(env Environment, state headstate.HeadState, e ObservedCollectCom) Outcome {
	initial, ok := state.(headstate.Initial)
	if !ok {
		return unchanged(state)
	}

	initialUTxO := env.Ledger.Empty()
	for _, u := range initial.Committed {
		initialUTxO = env.Ledger.Union(initialUTxO, u)
	}

	next := headstate.Open{
		HeadID: initial.HeadID,
		Params: initial.Params,
		Coordinated: headstate.CoordinatedState{
			InitialUTxO:       initialUTxO,
			SeenUTxO:          initialUTxO,
			ConfirmedSnapshot: snapshot.Initial{UTxO: initialUTxO},
		},
		Chain: e.NewChain,
	}

	return checkpointed(e.NewChain.Point, Outcome{
		NewState: next,
		Effects:  []Effect{ClientEffect{HeadIsOpen{HeadID: next.HeadID, InitialUTxO: initialUTxO}}},
	})
}

func stepObservedAbort(env Environment, state headstate.HeadState, e ObservedAbort) Outcome {
	initial, ok := state.(headstate.Initial)
	if !ok {
		return unchanged(state)
	}

	finalUTxO := env.Ledger.Empty()
	for _, u := range initial.Committed {
		finalUTxO = env.Ledger.Union(finalUTxO, u)
	}
	next := headstate.Final{HeadID: initial.HeadID, FinalUTxO: finalUTxO, Chain: e.NewChain}

	return checkpointed(e.NewChain.Point, Outcome{
		NewState: next,
		Effects:  []Effect{ClientEffect{HeadIsAborted{UTxO: finalUTxO}}},
	})
}

func stepObservedClose(state headstate.HeadState, e ObservedClose) Outcome {
	open, ok := state.(headstate.Open)
	if !ok {
		return unchanged(state)
	}

	next := headstate.Closed{
		HeadID:               open.HeadID,
		Params:               open.Params,
		ConfirmedSnapshot:    open.Coordinated.ConfirmedSnapshot,
		ContestationDeadline: e.Deadline,
		ReadyToFanout:        false,
		Chain:                e.NewChain,
	}

	return checkpointed(e.NewChain.Point, Outcome{
		NewState: next,
		Effects: []Effect{
			ClientEffect{HeadIsClosed{SnapshotNumber: e.SnapshotNumber, Deadline: e.Deadline}},
			Delay{Until: e.Deadline, Event: Tick{Now: e.Deadline}},
		},
	})
}

func stepObservedContest(env Environment, state headstate.HeadState, e ObservedContest) Outcome {
	closed, ok := state.(headstate.Closed)
	if !ok {
		return unchanged(state)
	}

	// Deadline extension policy (spec.md §9 open question, resolved in
	// DESIGN.md): each contest pushes the deadline out by a fixed,
	// configurable extension rather than resetting the full contestation
	// period.
	next := closed
	next.ContestationDeadline = closed.ContestationDeadline.Add(env.ContestationExtension)
	next.ReadyToFanout = false

	return checkpointed(e.NewChain.Point, Outcome{
		NewState: next,
		Effects:  []Effect{ClientEffect{HeadIsContested{SnapshotNumber: e.SnapshotNumber}}},
	})
}

func stepObservedFanout(state headstate.HeadState, e ObservedFanout) Outcome {
	closed, ok := state.(headstate.Closed)
	if !ok {
		return unchanged(state)
	}

	next := headstate.Final{
		HeadID:    closed.HeadID,
		FinalUTxO: closed.ConfirmedSnapshot.UTxOSet(),
		Chain:     e.NewChain,
	}

	return checkpointed(e.NewChain.Point, Outcome{
		NewState: next,
		Effects:  []Effect{ClientEffect{HeadIsFinalized{UTxO: next.FinalUTxO}}},
	})
}

func stepTick(state headstate.HeadState, tick Tick) Outcome {
	closed, ok := state.(headstate.Closed)
	if !ok {
		return unchanged(state)
	}
	if closed.ReadyToFanout || tick.Now.Before(closed.ContestationDeadline) {
		return unchanged(state)
	}

	next := closed
	next.ReadyToFanout = true
	return unchanged(next, ClientEffect{ReadyToFanout{}})
}

// stepRollback reverts state to the most recent checkpoint recorded at
// exactly ToPoint; when no checkpoint has that point, it reverts to the
// oldest checkpoint held (spec.md §4.3.3).
func stepRollback(env Environment, state headstate.HeadState, rb Rollback) Outcome {
	for i := len(env.Checkpoints) - 1; i >= 0; i-- {
		cp := env.Checkpoints[i]
		if cp.Point == rb.ToPoint {
			return Outcome{
				NewState: cp.State,
				Effects:  []Effect{ClientEffect{RolledBack{ToPoint: rb.ToPoint.String()}}},
			}
		}
	}
	// No exact checkpoint match: revert to the oldest checkpoint we have,
	// which is the most conservative recoverable point.
	if len(env.Checkpoints) > 0 {
		cp := env.Checkpoints[0]
		return Outcome{
			NewState: cp.State,
			Effects:  []Effect{ClientEffect{RolledBack{ToPoint: cp.Point.String()}}},
		}
	}
	return unchanged(state, ClientEffect{RolledBack{ToPoint: rb.ToPoint.String()}})
}
