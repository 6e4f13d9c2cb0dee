package apiserver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/ledger"
)

func simpleTxDecoder() TxDecoder {
	return func(raw json.RawMessage) (ledger.Tx, error) {
		var t ledger.SimpleTx
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		return t, nil
	}
}

func simpleUTxODecoder() UTxODecoder {
	return func(raw json.RawMessage) (ledger.UTxOSet, error) {
		var refs []wireRef
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, err
		}
		u := ledger.SimpleUTxO{}
		for _, r := range refs {
			u[ledger.OutputRef{TxID: r.TxID, Index: r.Index}] = ""
		}
		return u, nil
	}
}

func TestDecodeCommandNewTx(t *testing.T) {
	raw := []byte(`{"command":"NewTx","transaction":{"ID":"t1","Outputs":["1","2"]}}`)
	cmd, err := decodeCommand(raw, simpleTxDecoder(), simpleUTxODecoder())
	require.NoError(t, err)
	require.Equal(t, "NewTx", commandKind(cmd))
}

func TestDecodeCommandNewTxRequiresTransaction(t *testing.T) {
	raw := []byte(`{"command":"NewTx"}`)
	_, err := decodeCommand(raw, simpleTxDecoder(), simpleUTxODecoder())
	require.Error(t, err)
}

func TestDecodeCommandSimpleVerbs(t *testing.T) {
	for _, cmd := range []string{"Init", "Abort", "GetUTxO", "Close", "Contest", "Fanout"} {
		raw := []byte(`{"command":"` + cmd + `"}`)
		parsed, err := decodeCommand(raw, simpleTxDecoder(), simpleUTxODecoder())
		require.NoError(t, err)
		require.Equal(t, cmd, commandKind(parsed))
	}
}

func TestDecodeCommandUnknownRejected(t *testing.T) {
	raw := []byte(`{"command":"Teleport"}`)
	_, err := decodeCommand(raw, simpleTxDecoder(), simpleUTxODecoder())
	require.Error(t, err)
}

func TestDecodeCommandMalformedJSONRejected(t *testing.T) {
	_, err := decodeCommand([]byte(`not json`), simpleTxDecoder(), simpleUTxODecoder())
	require.Error(t, err)
}
