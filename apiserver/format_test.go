package apiserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/snapshot"
)

func sampleUTxO() ledger.SimpleUTxO {
	return ledger.SimpleUTxO{
		{TxID: "seed", Index: 0}: "100",
		{TxID: "seed", Index: 1}: "200",
	}
}

func TestEnvelopeAddsHeader(t *testing.T) {
	env := DefaultOptions().Envelope(7, time.Unix(0, 0), ledger.NewSimpleLedger(), headlogic.ReadyToFanout{})
	require.Equal(t, uint64(7), env["seq"])
	require.Equal(t, "ReadyToFanout", env["tag"])
	require.Contains(t, env, "timestamp")
}

func TestEnvelopeTransactionModeJSON(t *testing.T) {
	tx := ledger.SimpleTx{ID: "t1", Outputs: []string{"1"}}
	env := DefaultOptions().Envelope(1, time.Now(), ledger.NewSimpleLedger(), headlogic.TxValid{Tx: tx})
	require.Equal(t, tx, env["transaction"])
}

func TestEnvelopeTransactionModeCborHex(t *testing.T) {
	l := ledger.NewSimpleLedger()
	tx := ledger.SimpleTx{ID: "t1", Outputs: []string{"1"}}
	o := Options{TransactionMode: "cbor-hex", UTxOInSnapshot: "include"}
	env := o.Envelope(1, time.Now(), l, headlogic.TxValid{Tx: tx})

	hexStr, ok := env["transaction"].(string)
	require.True(t, ok, "expected hex string, got %T", env["transaction"])
	require.NotEmpty(t, hexStr)
}

func TestEnvelopeSnapshotOmitsUTxOWhenConfigured(t *testing.T) {
	l := ledger.NewSimpleLedger()
	snap := snapshot.Snapshot{Number: 3, UTxO: sampleUTxO(), ConfirmedTxs: nil}

	include := DefaultOptions().Envelope(1, time.Now(), l, headlogic.SnapshotConfirmed{Snapshot: snap})
	includeSnap := include["snapshot"].(map[string]interface{})
	require.Contains(t, includeSnap, "utxo")

	omit := Options{TransactionMode: "json", UTxOInSnapshot: "omit"}
	out := omit.Envelope(1, time.Now(), l, headlogic.SnapshotConfirmed{Snapshot: snap})
	outSnap := out["snapshot"].(map[string]interface{})
	require.NotContains(t, outSnap, "utxo")
}

func TestEnvelopeCommandFailedNamesCommand(t *testing.T) {
	env := DefaultOptions().Envelope(1, time.Now(), ledger.NewSimpleLedger(), headlogic.CommandFailed{
		Command: headlogic.NewTxCmd{Tx: ledger.SimpleTx{ID: "t1"}},
		Reason:  "head is not Open",
	})
	require.Equal(t, "NewTx", env["command"])
	require.Equal(t, "head is not Open", env["reason"])
}

func TestEncodeUTxOSetIsSortedByRef(t *testing.T) {
	refs := encodeUTxOSet(sampleUTxO())
	require.Len(t, refs, 2)
	require.Equal(t, uint32(0), refs[0].Index)
	require.Equal(t, uint32(1), refs[1].Index)
}

func TestEnvelopeHeadIsOpenCarriesInitialUTxO(t *testing.T) {
	env := DefaultOptions().Envelope(1, time.Now(), ledger.NewSimpleLedger(), headlogic.HeadIsOpen{
		HeadID:      party.HeadId("head-1"),
		InitialUTxO: sampleUTxO(),
	})
	require.Equal(t, party.HeadId("head-1"), env["headId"])
	require.Len(t, env["utxo"], 2)
}
