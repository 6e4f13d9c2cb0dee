package headlogic

import (
	"time"

	"github.com/hydra-head/hydra-node/headstate"
)

// Effect is one of NetworkBroadcast, ClientEffect, OnChainEffect, Delay
// (spec.md §4.3). Effects are returned in the order Step wants them
// dispatched (spec.md §5 "Effects produced by a single step are dispatched
// in the order returned").
type Effect interface {
	isEffect()
}

// NetworkBroadcast asks the node runtime to send Msg to every peer.
type NetworkBroadcast struct {
	Msg NetworkMessage
}

func (NetworkBroadcast) isEffect() {}

// ClientEffect asks the node runtime to deliver Output to every API
// subscriber. The runtime never drops a ClientEffect (spec.md §4.4); a slow
// client's own bounded queue absorbs backpressure, not this effect.
type ClientEffect struct {
	Output ClientOutput
}

func (ClientEffect) isEffect() {}

// OnChainEffect asks the chain adapter to post Tx. Posting is fire-and-
// forget from Step's perspective: the logic does not auto-retry chain
// posts (spec.md §7).
type OnChainEffect struct {
	Tx PostChainTx
}

func (OnChainEffect) isEffect() {}

// Delay asks the node runtime to re-enqueue Event once wall-clock reaches
// Until (used for a Tick at the contestation deadline, and for TTL-bounded
// ReqTx retries with a zero Until meaning "ready now"). The runtime
// re-enqueues Event without inspecting head state; Step then handles it
// against whatever state is current when it is dequeued.
type Delay struct {
	Until time.Time
	Event Input
}

func (Delay) isEffect() {}

// Outcome is the result of one Step call: the new HeadState, the ordered
// effects to dispatch, and, for chain-driven transitions, a checkpoint the
// node runtime should append to its rollback ring.
type Outcome struct {
	NewState   headstate.HeadState
	Effects    []Effect
	Checkpoint *Checkpoint
}

// unchanged returns an Outcome that leaves state untouched, optionally
// emitting effects (typically a single ClientEffect(CommandFailed) or
// InvalidInput).
func unchanged(state headstate.HeadState, effects ...Effect) Outcome {
	return Outcome{NewState: state, Effects: effects}
}
