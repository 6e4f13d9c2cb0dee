package headlogic

import "github.com/hydra-head/hydra-node/ledger"

// ClientCommand is one of the eight inbound client commands (spec.md §4.3.1,
// §6).
type ClientCommand interface {
	isClientCommand()
}

// InitCmd requests the chain adapter post an InitTx.
type InitCmd struct{}

func (InitCmd) isClientCommand() {}

// AbortCmd requests the chain adapter post an AbortTx.
type AbortCmd struct{}

func (AbortCmd) isClientCommand() {}

// CommitCmd commits UTxO to the head being initialized.
type CommitCmd struct {
	UTxO ledger.UTxOSet
}

func (CommitCmd) isClientCommand() {}

// NewTxCmd submits a new transaction to the open head.
type NewTxCmd struct {
	Tx ledger.Tx
}

func (NewTxCmd) isClientCommand() {}

// GetUTxOCmd requests the current confirmed UTxO set.
type GetUTxOCmd struct{}

func (GetUTxOCmd) isClientCommand() {}

// CloseCmd requests the chain adapter post a CloseTx.
type CloseCmd struct{}

func (CloseCmd) isClientCommand() {}

// ContestCmd requests the chain adapter post a ContestTx carrying the
// confirmed snapshot recorded in the Closed state. That snapshot's number
// is not compared with the number the head was closed with.
type ContestCmd struct{}

func (ContestCmd) isClientCommand() {}

// FanoutCmd requests the chain adapter post a FanoutTx.
type FanoutCmd struct{}

func (FanoutCmd) isClientCommand() {}
