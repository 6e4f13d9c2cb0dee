package headlogic

import (
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/snapshot"
)

// PostChainTx is one of the transaction kinds Step can ask the chain
// adapter to post (spec.md §4.3.1, §4.3.3).
type PostChainTx interface {
	isPostChainTx()
}

// InitTx opens a new head with Params, anchored on SeedTxIn.
type InitTx struct {
	Params   party.Parameters
	SeedTxIn string
}

func (InitTx) isPostChainTx() {}

// CommitTx commits UTxO on behalf of Party.
type CommitTx struct {
	Party party.Party
	UTxO  ledger.UTxOSet
}

func (CommitTx) isPostChainTx() {}

// AbortTx aborts an Initial head, returning every committed UTxO.
type AbortTx struct {
	Committed map[string]ledger.UTxOSet
}

func (AbortTx) isPostChainTx() {}

// CollectComTx opens the head once every party has committed.
type CollectComTx struct {
	Committed map[string]ledger.UTxOSet
}

func (CollectComTx) isPostChainTx() {}

// CloseTx closes an Open head with the given confirmed snapshot.
type CloseTx struct {
	ConfirmedSnapshot snapshot.ConfirmedSnapshot
}

func (CloseTx) isPostChainTx() {}

// ContestTx contests a Closed head with ConfirmedSnapshot; stepContest
// fills it from the Closed state without comparing snapshot numbers.
type ContestTx struct {
	ConfirmedSnapshot snapshot.ConfirmedSnapshot
}

func (ContestTx) isPostChainTx() {}

// FanoutTx releases UTxO back to the main chain, terminating the head.
type FanoutTx struct {
	UTxO ledger.UTxOSet
}

func (FanoutTx) isPostChainTx() {}
