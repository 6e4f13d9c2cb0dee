package headlogic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
)

func TestObservedInitIgnoredWhenSelfNotAMember(t *testing.T) {
	w := newTestWorld(t, 1)
	env := w.env(0)
	outsiderParams := party.NewParameters([]party.Party{newTestParty(t).Party}, 0)
	idle := headstate.Idle{Chain: chainAt(1, "a")}

	out := Step(env, idle, ChainInput{Event: ObservedInit{
		HeadID: "h", Params: outsiderParams, NewChain: chainAt(2, "b"),
	}})

	require.Equal(t, idle, out.NewState)
	require.Empty(t, out.Effects)
	require.Nil(t, out.Checkpoint)
}

func TestObservedInitTransitionsToInitialAndCheckpoints(t *testing.T) {
	w := newTestWorld(t, 2)
	env := w.env(0)
	params := w.params(10 * time.Second)
	idle := headstate.Idle{Chain: chainAt(1, "a")}

	out := Step(env, idle, ChainInput{Event: ObservedInit{
		HeadID: "h", Params: params, SeedTxIn: "seed#0", NewChain: chainAt(2, "b"),
	}})

	next, ok := out.NewState.(headstate.Initial)
	require.True(t, ok)
	require.Equal(t, party.HeadId("h"), next.HeadID)
	require.Empty(t, next.Committed)
	require.NotNil(t, out.Checkpoint)
	require.Equal(t, chainAt(2, "b").Point, out.Checkpoint.Point)
}

func TestObservedCommitIsLinear(t *testing.T) {
	w := newTestWorld(t, 2)
	env := w.env(0)
	params := w.params(0)
	initial := headstate.Initial{HeadID: "h", Params: params, Committed: map[string]ledger.UTxOSet{}, Chain: chainAt(1, "a")}

	u1 := ledger.SimpleUTxO{{TxID: "seed", Index: 0}: "a"}
	first := Step(env, initial, ChainInput{Event: ObservedCommit{Party: w.parties[0].Party, UTxO: u1, NewChain: chainAt(2, "b")}})
	firstState := first.NewState.(headstate.Initial)
	require.True(t, firstState.HasCommitted(w.parties[0].Party))

	// A second, duplicate observation of the same party's commit (e.g. after
	// a rollback-and-replay) must be a no-op on the committed set.
	second := Step(env, firstState, ChainInput{Event: ObservedCommit{Party: w.parties[0].Party, UTxO: ledger.SimpleUTxO{{TxID: "other", Index: 0}: "z"}, NewChain: chainAt(3, "c")}})
	secondState := second.NewState.(headstate.Initial)
	require.Equal(t, firstState.Committed, secondState.Committed)
	require.NotNil(t, second.Checkpoint) // still checkpointed even though state is unchanged
}

func TestObservedCommitPostsCollectComTxOnceEveryPartyHasCommitted(t *testing.T) {
	w := newTestWorld(t, 2)
	env := w.env(0)
	params := w.params(0)
	u0 := ledger.SimpleUTxO{{TxID: "a", Index: 0}: "1"}
	initial := headstate.Initial{
		HeadID:    "h",
		Params:    params,
		Committed: map[string]ledger.UTxOSet{w.parties[0].VerificationKeyHex: u0},
		Chain:     chainAt(1, "a"),
	}

	u1 := ledger.SimpleUTxO{{TxID: "b", Index: 0}: "2"}
	out := Step(env, initial, ChainInput{Event: ObservedCommit{Party: w.parties[1].Party, UTxO: u1, NewChain: chainAt(2, "b")}})

	require.Len(t, out.Effects, 2)
	require.IsType(t, ClientEffect{}, out.Effects[0])
	onchain, ok := out.Effects[1].(OnChainEffect)
	require.True(t, ok)
	collectCom, ok := onchain.Tx.(CollectComTx)
	require.True(t, ok)
	require.Equal(t, u0, collectCom.Committed[w.parties[0].VerificationKeyHex])
	require.Equal(t, u1, collectCom.Committed[w.parties[1].VerificationKeyHex])
}

func TestObservedCollectComUnionsCommittedUTxOAndOpensHead(t *testing.T) {
	w := newTestWorld(t, 2)
	env := w.env(0)
	params := w.params(0)
	committed := map[string]ledger.UTxOSet{
		w.parties[0].VerificationKeyHex: ledger.SimpleUTxO{{TxID: "a", Index: 0}: "1"},
		w.parties[1].VerificationKeyHex: ledger.SimpleUTxO{{TxID: "b", Index: 0}: "2"},
	}
	initial := headstate.Initial{HeadID: "h", Params: params, Committed: committed, Chain: chainAt(1, "a")}

	out := Step(env, initial, ChainInput{Event: ObservedCollectCom{NewChain: chainAt(2, "b")}})

	open, ok := out.NewState.(headstate.Open)
	require.True(t, ok)
	union := open.Coordinated.InitialUTxO.(ledger.SimpleUTxO)
	require.Len(t, union, 2)
	require.Equal(t, union, open.Coordinated.SeenUTxO.(ledger.SimpleUTxO))
	require.Equal(t, uint64(0), open.Coordinated.ConfirmedSnapshot.SnapshotNumber())
}

func TestObservedAbortUnionsAllCommittedIntoFinal(t *testing.T) {
	w := newTestWorld(t, 3)
	env := w.env(0)
	params := w.params(0)
	committed := map[string]ledger.UTxOSet{
		w.parties[0].VerificationKeyHex: ledger.SimpleUTxO{{TxID: "a", Index: 0}: "1"},
		w.parties[1].VerificationKeyHex: ledger.SimpleUTxO{{TxID: "b", Index: 0}: "2"},
		w.parties[2].VerificationKeyHex: ledger.SimpleUTxO{{TxID: "c", Index: 0}: "3"},
	}
	initial := headstate.Initial{HeadID: "h", Params: params, Committed: committed, Chain: chainAt(1, "a")}

	out := Step(env, initial, ChainInput{Event: ObservedAbort{NewChain: chainAt(2, "b")}})

	final, ok := out.NewState.(headstate.Final)
	require.True(t, ok)
	require.Len(t, final.FinalUTxO.(ledger.SimpleUTxO), 3)
}

func TestObservedCloseSchedulesFanoutTick(t *testing.T) {
	w := newTestWorld(t, 1)
	env := w.env(0)
	open := openState(w, ledger.SimpleUTxO{})
	deadline := time.Unix(1000, 0)

	out := Step(env, open, ChainInput{Event: ObservedClose{SnapshotNumber: 1, Deadline: deadline, NewChain: chainAt(2, "b")}})

	closed, ok := out.NewState.(headstate.Closed)
	require.True(t, ok)
	require.Equal(t, deadline, closed.ContestationDeadline)
	require.False(t, closed.ReadyToFanout)

	var sawDelay bool
	for _, e := range out.Effects {
		if d, ok := e.(Delay); ok {
			require.Equal(t, deadline, d.Until)
			sawDelay = true
		}
	}
	require.True(t, sawDelay)
}

func TestObservedContestExtendsDeadlineAndResetsReadyFlag(t *testing.T) {
	w := newTestWorld(t, 1)
	env := w.env(0)
	deadline := time.Unix(1000, 0)
	closed := headstate.Closed{HeadID: "h", Params: w.params(0), ConfirmedSnapshot: snapshotInitial(ledger.SimpleUTxO{}), ContestationDeadline: deadline, ReadyToFanout: true, Chain: chainAt(1, "a")}

	out := Step(env, closed, ChainInput{Event: ObservedContest{SnapshotNumber: 2, NewChain: chainAt(2, "b")}})

	next := out.NewState.(headstate.Closed)
	require.Equal(t, deadline.Add(env.ContestationExtension), next.ContestationDeadline)
	require.False(t, next.ReadyToFanout)
}

func TestObservedFanoutTransitionsToFinal(t *testing.T) {
	w := newTestWorld(t, 1)
	env := w.env(0)
	u := ledger.SimpleUTxO{{TxID: "a", Index: 0}: "1"}
	closed := headstate.Closed{HeadID: "h", Params: w.params(0), ConfirmedSnapshot: snapshotInitial(u), Chain: chainAt(1, "a")}

	out := Step(env, closed, ChainInput{Event: ObservedFanout{NewChain: chainAt(2, "b")}})

	final, ok := out.NewState.(headstate.Final)
	require.True(t, ok)
	require.Equal(t, u, final.FinalUTxO)
}

func TestTickSetsReadyToFanoutOncePastDeadline(t *testing.T) {
	w := newTestWorld(t, 1)
	env := w.env(0)
	deadline := time.Unix(1000, 0)
	closed := headstate.Closed{HeadID: "h", Params: w.params(0), ContestationDeadline: deadline}

	before := Step(env, closed, Tick{Now: deadline.Add(-time.Second)})
	require.False(t, before.NewState.(headstate.Closed).ReadyToFanout)

	after := Step(env, closed, Tick{Now: deadline.Add(time.Second)})
	next := after.NewState.(headstate.Closed)
	require.True(t, next.ReadyToFanout)
	effect := after.Effects[0].(ClientEffect)
	_, ok := effect.Output.(ReadyToFanout)
	require.True(t, ok)
}

func TestRollbackRevertsToExactCheckpoint(t *testing.T) {
	w := newTestWorld(t, 1)
	oldState := headstate.Idle{Chain: chainAt(1, "a")}
	newState := headstate.Initial{HeadID: "h", Chain: chainAt(2, "b")}
	env := w.env(0)
	env.Checkpoints = []Checkpoint{
		{Point: chainAt(1, "a").Point, State: oldState},
		{Point: chainAt(2, "b").Point, State: newState},
	}

	out := Step(env, newState, ChainInput{Event: Rollback{ToPoint: chainAt(1, "a").Point}})

	require.Equal(t, oldState, out.NewState)
	effect := out.Effects[0].(ClientEffect)
	_, ok := effect.Output.(RolledBack)
	require.True(t, ok)
}

func TestRollbackWithNoMatchingCheckpointFallsBackToOldest(t *testing.T) {
	w := newTestWorld(t, 1)
	oldState := headstate.Idle{Chain: chainAt(1, "a")}
	env := w.env(0)
	env.Checkpoints = []Checkpoint{{Point: chainAt(1, "a").Point, State: oldState}}
	current := headstate.Initial{HeadID: "h", Chain: chainAt(5, "z")}

	out := Step(env, current, ChainInput{Event: Rollback{ToPoint: chainAt(99, "nonexistent").Point}})

	require.Equal(t, oldState, out.NewState)
}
