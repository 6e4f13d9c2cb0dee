package headlogic

import (
	"time"

	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
)

// ChainEvent is one of the observation kinds the chain adapter can enqueue,
// plus Rollback (spec.md §4.3.3).
type ChainEvent interface {
	isChainEvent()
}

// ObservedInit is a head-initialization transaction seen on chain.
type ObservedInit struct {
	HeadID   party.HeadId
	Params   party.Parameters
	SeedTxIn string
	NewChain chainstate.State
}

func (ObservedInit) isChainEvent() {}

// ObservedCommit is a party's commit transaction seen on chain.
type ObservedCommit struct {
	Party    party.Party
	UTxO     ledger.UTxOSet
	NewChain chainstate.State
}

func (ObservedCommit) isChainEvent() {}

// ObservedCollectCom is the collect-com transaction that opens the head.
type ObservedCollectCom struct {
	NewChain chainstate.State
}

func (ObservedCollectCom) isChainEvent() {}

// ObservedAbort is the abort transaction seen while the head is Initial.
type ObservedAbort struct {
	NewChain chainstate.State
}

func (ObservedAbort) isChainEvent() {}

// ObservedClose is the close transaction seen while the head is Open.
type ObservedClose struct {
	SnapshotNumber uint64
	Deadline       time.Time
	NewChain       chainstate.State
}

func (ObservedClose) isChainEvent() {}

// ObservedContest is a contest transaction seen while the head is Closed.
type ObservedContest struct {
	SnapshotNumber uint64
	NewChain       chainstate.State
}

func (ObservedContest) isChainEvent() {}

// ObservedFanout is the fanout transaction seen while the head is Closed.
type ObservedFanout struct {
	NewChain chainstate.State
}

func (ObservedFanout) isChainEvent() {}

// Rollback asks the head to revert to the checkpoint recorded at ToPoint,
// or to the oldest checkpoint held when none matches (spec.md §4.3.3).
type Rollback struct {
	ToPoint chainstate.Point
}

func (Rollback) isChainEvent() {}
