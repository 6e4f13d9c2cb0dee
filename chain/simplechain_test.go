package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
)

func TestSimpleChainSubmitThenPollObservesInit(t *testing.T) {
	c := NewSimpleChain(ledger.NewSimpleLedger(), time.Minute)

	require.NoError(t, c.Submit(headlogic.InitTx{SeedTxIn: "seed#0"}))

	state, event := c.Poll(c.InitialState())
	require.NotNil(t, state)
	init, ok := event.(headlogic.ObservedInit)
	require.True(t, ok)
	require.Equal(t, "seed#0", init.SeedTxIn)
}

func TestSimpleChainPollDrainsInOrder(t *testing.T) {
	c := NewSimpleChain(ledger.NewSimpleLedger(), time.Minute)

	require.NoError(t, c.Submit(headlogic.InitTx{SeedTxIn: "seed#0"}))
	require.NoError(t, c.Submit(headlogic.CollectComTx{}))

	_, first := c.Poll(c.InitialState())
	require.IsType(t, headlogic.ObservedInit{}, first)

	_, second := c.Poll(c.InitialState())
	require.IsType(t, headlogic.ObservedCollectCom{}, second)

	_, third := c.Poll(c.InitialState())
	require.Nil(t, third)
}

func TestSimpleChainCommitAccumulatesScriptUTxO(t *testing.T) {
	l := ledger.NewSimpleLedger()
	c := NewSimpleChain(l, time.Minute)
	p := party.Party{VerificationKeyHex: "0xaa"}
	utxo := ledger.SimpleUTxO{{TxID: "seed", Index: 0}: "100"}

	require.NoError(t, c.Submit(headlogic.CommitTx{Party: p, UTxO: utxo}))

	_, event := c.Poll(c.InitialState())
	commit, ok := event.(headlogic.ObservedCommit)
	require.True(t, ok)
	require.True(t, commit.UTxO.Equal(utxo))
	require.True(t, commit.NewChain.ScriptUTxO.Equal(utxo))
}

func TestSimpleChainRejectsUnknownPostChainTx(t *testing.T) {
	c := NewSimpleChain(ledger.NewSimpleLedger(), time.Minute)
	require.Error(t, c.Submit(nil))
}
