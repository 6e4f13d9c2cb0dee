package chain

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
)

// SimpleChain is an in-memory stand-in for the real settlement-chain
// indexer/submitter: it plays the role babble's proxy/app.InmemAppProxy
// plays for the application layer, so the head protocol can be run and
// exercised end-to-end without a real chain client. Submit turns a
// PostChainTx directly into the ChainEvent a real indexer would eventually
// observe and queues it for the next Poll, advancing chainstate.Point by
// one for every accepted transaction.
type SimpleChain struct {
	mu       sync.Mutex
	point    uint64
	pending  []headlogic.ChainEvent
	scriptUt ledger.UTxOSet
	ledger   ledger.Ledger

	contestation time.Duration
}

// NewSimpleChain returns an empty chain with no head yet initialized.
func NewSimpleChain(l ledger.Ledger, contestation time.Duration) *SimpleChain {
	return &SimpleChain{
		ledger:       l,
		scriptUt:     l.Empty(),
		contestation: contestation,
	}
}

// InitialState is the chainstate.State a freshly constructed SimpleChain
// starts from, for wiring into chain.NewAdapter.
func (c *SimpleChain) InitialState() chainstate.State {
	return chainstate.State{Point: chainstate.Point{Slot: 0, Hash: "genesis"}, ScriptUTxO: c.ledger.Empty()}
}

// Submit implements chain.Submitter by immediately accepting tx and
// queuing the corresponding observation, mirroring InmemAppProxy.commit's
// synchronous, always-succeeds behavior.
func (c *SimpleChain) Submit(tx headlogic.PostChainTx) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	point := c.nextPoint()

	switch t := tx.(type) {
	case headlogic.InitTx:
		c.pending = append(c.pending, headlogic.ObservedInit{
			HeadID:   party.HeadId(point.Hash),
			Params:   t.Params,
			SeedTxIn: t.SeedTxIn,
			NewChain: chainstate.State{Point: point, ScriptUTxO: c.scriptUt},
		})
	case headlogic.CommitTx:
		c.scriptUt = c.ledger.Union(c.scriptUt, t.UTxO)
		c.pending = append(c.pending, headlogic.ObservedCommit{
			Party:    t.Party,
			UTxO:     t.UTxO,
			NewChain: chainstate.State{Point: point, ScriptUTxO: c.scriptUt},
		})
	case headlogic.CollectComTx:
		c.pending = append(c.pending, headlogic.ObservedCollectCom{
			NewChain: chainstate.State{Point: point, ScriptUTxO: c.scriptUt},
		})
	case headlogic.AbortTx:
		c.scriptUt = c.ledger.Empty()
		c.pending = append(c.pending, headlogic.ObservedAbort{
			NewChain: chainstate.State{Point: point, ScriptUTxO: c.scriptUt},
		})
	case headlogic.CloseTx:
		c.pending = append(c.pending, headlogic.ObservedClose{
			SnapshotNumber: t.ConfirmedSnapshot.SnapshotNumber(),
			Deadline:       time.Now().Add(c.contestation),
			NewChain:       chainstate.State{Point: point, ScriptUTxO: c.scriptUt},
		})
	case headlogic.ContestTx:
		c.pending = append(c.pending, headlogic.ObservedContest{
			SnapshotNumber: t.ConfirmedSnapshot.SnapshotNumber(),
			NewChain:       chainstate.State{Point: point, ScriptUTxO: c.scriptUt},
		})
	case headlogic.FanoutTx:
		c.scriptUt = c.ledger.Empty()
		c.pending = append(c.pending, headlogic.ObservedFanout{
			NewChain: chainstate.State{Point: point, ScriptUTxO: c.scriptUt},
		})
	default:
		c.point-- // a rejected tx does not advance the chain
		return fmt.Errorf("chain: unrecognized PostChainTx %T", tx)
	}

	return nil
}

// nextPoint must be called with c.mu held.
func (c *SimpleChain) nextPoint() chainstate.Point {
	c.point++
	return chainstate.Point{Slot: c.point, Hash: strconv.FormatUint(c.point, 10)}
}

// Poll implements chain.PollFunc: it drains one queued observation per
// call, the same one-event-per-poll shape NewAdapter's ticker loop expects.
func (c *SimpleChain) Poll(last chainstate.State) (*chainstate.State, headlogic.ChainEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return nil, nil
	}

	event := c.pending[0]
	c.pending = c.pending[1:]

	state := chainstate.State{Point: c.currentPointLocked(), ScriptUTxO: c.scriptUt}
	return &state, event
}

func (c *SimpleChain) currentPointLocked() chainstate.Point {
	return chainstate.Point{Slot: c.point, Hash: strconv.FormatUint(c.point, 10)}
}
