package apiserver

import (
	"encoding/json"
	"fmt"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/ledger"
)

// TxDecoder turns a client-submitted "transaction" payload into a
// ledger.Tx. It is supplied by whoever wires up a Server, the same way
// node.Runtime is handed a sign/verify closure rather than hard-coding one
// (ledger.Tx is opaque to this package).
type TxDecoder func(raw json.RawMessage) (ledger.Tx, error)

// UTxODecoder does the same for a client-submitted "utxo" payload.
type UTxODecoder func(raw json.RawMessage) (ledger.UTxOSet, error)

// wireCommand is the inbound JSON shape: spec.md §6's eight commands,
// flattened into one envelope distinguished by the "command" field.
type wireCommand struct {
	Command     string          `json:"command"`
	UTxO        json.RawMessage `json:"utxo,omitempty"`
	Transaction json.RawMessage `json:"transaction,omitempty"`
}

// decodeCommand parses one inbound client message into a headlogic.ClientCommand.
// A parse failure here is the InvalidInput case of spec.md §7 (malformed
// inbound message), distinct from a CommandFailed precondition failure that
// headlogic itself reports.
func decodeCommand(raw []byte, txDec TxDecoder, utxoDec UTxODecoder) (headlogic.ClientCommand, error) {
	var w wireCommand
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("apiserver: malformed command: %w", err)
	}

	switch w.Command {
	case "Init":
		return headlogic.InitCmd{}, nil
	case "Abort":
		return headlogic.AbortCmd{}, nil
	case "Commit":
		if len(w.UTxO) == 0 {
			return nil, fmt.Errorf("apiserver: Commit requires a utxo field")
		}
		u, err := utxoDec(w.UTxO)
		if err != nil {
			return nil, fmt.Errorf("apiserver: decoding utxo: %w", err)
		}
		return headlogic.CommitCmd{UTxO: u}, nil
	case "NewTx":
		if len(w.Transaction) == 0 {
			return nil, fmt.Errorf("apiserver: NewTx requires a transaction field")
		}
		tx, err := txDec(w.Transaction)
		if err != nil {
			return nil, fmt.Errorf("apiserver: decoding transaction: %w", err)
		}
		return headlogic.NewTxCmd{Tx: tx}, nil
	case "GetUTxO":
		return headlogic.GetUTxOCmd{}, nil
	case "Close":
		return headlogic.CloseCmd{}, nil
	case "Contest":
		return headlogic.ContestCmd{}, nil
	case "Fanout":
		return headlogic.FanoutCmd{}, nil
	default:
		return nil, fmt.Errorf("apiserver: unknown command %q", w.Command)
	}
}
