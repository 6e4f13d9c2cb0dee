package headlogic

import (
	"time"

	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/snapshot"
)

// ClientOutput is one of the tagged output kinds delivered to every API
// subscriber (spec.md §6). apiserver attaches {seq, timestamp} and applies
// the per-connection output-formatting options at serialization time; Tag
// gives the wire "tag" field without apiserver needing a type switch.
type ClientOutput interface {
	Tag() string
	isClientOutput()
}

type PeerConnected struct{ Peer party.Party }

func (PeerConnected) Tag() string    { return "PeerConnected" }
func (PeerConnected) isClientOutput() {}

type PeerDisconnected struct{ Peer party.Party }

func (PeerDisconnected) Tag() string    { return "PeerDisconnected" }
func (PeerDisconnected) isClientOutput() {}

type HeadIsInitializing struct {
	HeadID party.HeadId
	Params party.Parameters
}

func (HeadIsInitializing) Tag() string    { return "HeadIsInitializing" }
func (HeadIsInitializing) isClientOutput() {}

type Committed struct {
	Party party.Party
	UTxO  ledger.UTxOSet
}

func (Committed) Tag() string    { return "Committed" }
func (Committed) isClientOutput() {}

type HeadIsOpen struct {
	HeadID      party.HeadId
	InitialUTxO ledger.UTxOSet
}

func (HeadIsOpen) Tag() string    { return "HeadIsOpen" }
func (HeadIsOpen) isClientOutput() {}

type HeadIsClosed struct {
	SnapshotNumber uint64
	Deadline       time.Time
}

func (HeadIsClosed) Tag() string    { return "HeadIsClosed" }
func (HeadIsClosed) isClientOutput() {}

type HeadIsContested struct {
	SnapshotNumber uint64
}

func (HeadIsContested) Tag() string    { return "HeadIsContested" }
func (HeadIsContested) isClientOutput() {}

type ReadyToFanout struct{}

func (ReadyToFanout) Tag() string    { return "ReadyToFanout" }
func (ReadyToFanout) isClientOutput() {}

type HeadIsAborted struct {
	UTxO ledger.UTxOSet
}

func (HeadIsAborted) Tag() string    { return "HeadIsAborted" }
func (HeadIsAborted) isClientOutput() {}

type HeadIsFinalized struct {
	UTxO ledger.UTxOSet
}

func (HeadIsFinalized) Tag() string    { return "HeadIsFinalized" }
func (HeadIsFinalized) isClientOutput() {}

// CommandFailed reports that a ClientCommand's precondition did not hold.
type CommandFailed struct {
	Command ClientCommand
	Reason  string
}

func (CommandFailed) Tag() string    { return "CommandFailed" }
func (CommandFailed) isClientOutput() {}

type TxValid struct {
	Tx ledger.Tx
}

func (TxValid) Tag() string    { return "TxValid" }
func (TxValid) isClientOutput() {}

type TxInvalid struct {
	Tx              ledger.Tx
	ValidationError string
}

func (TxInvalid) Tag() string    { return "TxInvalid" }
func (TxInvalid) isClientOutput() {}

type SnapshotConfirmed struct {
	Snapshot snapshot.Snapshot
}

func (SnapshotConfirmed) Tag() string    { return "SnapshotConfirmed" }
func (SnapshotConfirmed) isClientOutput() {}

type GetUTxOResponse struct {
	UTxO ledger.UTxOSet
}

func (GetUTxOResponse) Tag() string    { return "GetUTxOResponse" }
func (GetUTxOResponse) isClientOutput() {}

// InvalidInput reports a malformed inbound client message (parse failure,
// not a precondition failure — see CommandFailed for that case).
type InvalidInput struct {
	Reason string
}

func (InvalidInput) Tag() string    { return "InvalidInput" }
func (InvalidInput) isClientOutput() {}

// Greetings is sent once to a freshly connected client (grounded on
// service/service.go's initial handshake response).
type Greetings struct {
	HeadID party.HeadId
}

func (Greetings) Tag() string    { return "Greetings" }
func (Greetings) isClientOutput() {}

type PostTxOnChainFailed struct {
	Tx     PostChainTx
	Reason string
}

func (PostTxOnChainFailed) Tag() string    { return "PostTxOnChainFailed" }
func (PostTxOnChainFailed) isClientOutput() {}

type RolledBack struct {
	ToPoint string
}

func (RolledBack) Tag() string    { return "RolledBack" }
func (RolledBack) isClientOutput() {}
