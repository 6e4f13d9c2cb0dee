package headlogic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
)

func TestStepReqTxNotYetApplicableRequeuesWithDecrementedTTL(t *testing.T) {
	w := newTestWorld(t, 1)
	env := w.env(0)
	open := openState(w, ledger.SimpleUTxO{})
	tx := ledger.SimpleTx{ID: "t1", Inputs: []ledger.OutputRef{{TxID: "missing", Index: 0}}, Outputs: []string{"x"}}
	in := NetworkInput{Sender: w.parties[0].Party, Msg: ReqTx{Tx: tx}, TTL: env.TTLInitial}

	out := Step(env, open, in)

	require.Equal(t, open, out.NewState)
	require.Len(t, out.Effects, 1)
	delay, ok := out.Effects[0].(Delay)
	require.True(t, ok)
	requeued, ok := delay.Event.(NetworkInput)
	require.True(t, ok)
	require.Equal(t, env.TTLInitial-1, requeued.TTL)
}

func TestStepReqTxDroppedWhenTTLExhausted(t *testing.T) {
	w := newTestWorld(t, 1)
	env := w.env(0)
	open := openState(w, ledger.SimpleUTxO{})
	tx := ledger.SimpleTx{ID: "t1", Inputs: []ledger.OutputRef{{TxID: "missing", Index: 0}}, Outputs: []string{"x"}}
	in := NetworkInput{Sender: w.parties[0].Party, Msg: ReqTx{Tx: tx}, TTL: 0}

	out := Step(env, open, in)

	require.Equal(t, open, out.NewState)
	require.Empty(t, out.Effects)
}

func TestStepReqTxAppliesAndBroadcastsValid(t *testing.T) {
	w := newTestWorld(t, 2)
	env := w.env(0)
	seed := ledger.OutputRef{TxID: "seed", Index: 0}
	open := openState(w, ledger.SimpleUTxO{seed: "a"})
	tx := ledger.SimpleTx{ID: "t1", Inputs: []ledger.OutputRef{seed}, Outputs: []string{"b"}}
	in := NetworkInput{Sender: w.parties[1].Party, Msg: ReqTx{Tx: tx}, TTL: env.TTLInitial}

	out := Step(env, open, in)

	next := out.NewState.(headstate.Open)
	require.Len(t, next.Coordinated.SeenTxs, 1)
	require.Len(t, next.Coordinated.AllTxs, 1)
	require.Empty(t, next.Coordinated.LocalTxs) // peer-originated, not locally submitted

	effect := out.Effects[0].(ClientEffect)
	_, ok := effect.Output.(TxValid)
	require.True(t, ok)
}

// snapshotConfirmation drives one full ReqSn/AckSn round for n parties that
// all already know about tx, returning each party's resulting Open state.
func snapshotConfirmation(t *testing.T, w *testWorld, seen ledger.SimpleUTxO, tx ledger.Tx, leaderIdx int) []headstate.Open {
	t.Helper()
	opens := make([]headstate.Open, len(w.parties))
	for i := range opens {
		o := openState(w, seen)
		o.Coordinated.AllTxs = []ledger.Tx{tx}
		opens[i] = o
	}

	reqSn := ReqSn{Leader: w.parties[leaderIdx].Party, Number: 1, Txs: []ledger.Tx{tx}}

	var acks []AckSn
	for i, o := range opens {
		res := Step(w.env(i), o, NetworkInput{Sender: w.parties[leaderIdx].Party, Msg: reqSn})
		opens[i] = res.NewState.(headstate.Open)
		for _, e := range res.Effects {
			if nb, ok := e.(NetworkBroadcast); ok {
				if ack, ok := nb.Msg.(AckSn); ok {
					acks = append(acks, ack)
				}
			}
		}
	}
	require.Len(t, acks, len(w.parties))

	for i := range opens {
		for _, ack := range acks {
			res := Step(w.env(i), opens[i], NetworkInput{Sender: ack.Party, Msg: ack})
			opens[i] = res.NewState.(headstate.Open)
		}
	}
	return opens
}

func TestSnapshotRoundTripUnanimousConfirmation(t *testing.T) {
	w := newTestWorld(t, 3)
	seed := ledger.OutputRef{TxID: "seed", Index: 0}
	seen := ledger.SimpleUTxO{seed: "a"}
	tx := ledger.SimpleTx{ID: "t1", Inputs: []ledger.OutputRef{seed}, Outputs: []string{"b"}}

	leader, err := w.params(0).Leader(1)
	require.NoError(t, err)
	leaderIdx := 0
	for i, p := range w.parties {
		if p.VerificationKeyHex == leader.VerificationKeyHex {
			leaderIdx = i
		}
	}

	finals := snapshotConfirmation(t, w, seen, tx, leaderIdx)

	for _, o := range finals {
		require.Equal(t, uint64(1), o.Coordinated.ConfirmedSnapshot.SnapshotNumber())
		require.Nil(t, o.Coordinated.SeenSnapshot)
		require.Empty(t, o.Coordinated.SeenTxs)
		require.Empty(t, o.Coordinated.AllTxs)
		applied := o.Coordinated.ConfirmedSnapshot.UTxOSet().(ledger.SimpleUTxO)
		require.Contains(t, applied, ledger.OutputRef{TxID: "t1", Index: 0})
		require.NotContains(t, applied, seed)
	}
}

func TestStepAckSnDuplicateFromSamePartyIsIdempotent(t *testing.T) {
	w := newTestWorld(t, 2)

	leader, err := w.params(0).Leader(1)
	require.NoError(t, err)
	leaderIdx := 0
	for i, p := range w.parties {
		if p.VerificationKeyHex == leader.VerificationKeyHex {
			leaderIdx = i
		}
	}

	leaderOut := Step(w.env(leaderIdx), openState(w, ledger.SimpleUTxO{}), NetworkInput{
		Sender: w.parties[leaderIdx].Party,
		Msg:    ReqSn{Leader: w.parties[leaderIdx].Party, Number: 1, Txs: nil},
	})
	leaderOpen := leaderOut.NewState.(headstate.Open)
	var selfAck AckSn
	for _, e := range leaderOut.Effects {
		if nb, ok := e.(NetworkBroadcast); ok {
			selfAck = nb.Msg.(AckSn)
		}
	}

	first := Step(w.env(leaderIdx), leaderOpen, NetworkInput{Sender: selfAck.Party, Msg: selfAck})
	second := Step(w.env(leaderIdx), first.NewState, NetworkInput{Sender: selfAck.Party, Msg: selfAck})

	require.Equal(t, first.NewState, second.NewState)
}
