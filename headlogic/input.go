package headlogic

import (
	"time"

	"github.com/hydra-head/hydra-node/party"
)

// Input is one of ClientInput, NetworkInput, ChainInput, Tick, or
// NetworkLivenessInput (spec.md §4.1). Values are queued as
// queue.Envelope.Item and handed to Step unchanged.
type Input interface {
	isInput()
}

// ClientInput carries one command from a local client (spec.md §4.3.1).
type ClientInput struct {
	Command ClientCommand
}

func (ClientInput) isInput() {}

// NetworkInput carries one message received from a peer, plus its
// remaining retry budget (spec.md §4.1: "TTL allows the head logic to decay
// certain reliable-broadcast retries").
type NetworkInput struct {
	Sender party.Party
	Msg    NetworkMessage
	TTL    uint32
}

func (NetworkInput) isInput() {}

// ChainInput carries one observation from the chain observer adapter
// (spec.md §4.3.3).
type ChainInput struct {
	Event ChainEvent
}

func (ChainInput) isInput() {}

// Tick is a periodic input used to check wall-clock deadlines (spec.md
// §4.1); Now is supplied by the caller, never read from the system clock
// inside Step (spec.md §1 non-goal: "does not decide wall-clock time").
type Tick struct {
	Now time.Time
}

func (Tick) isInput() {}

// NetworkLivenessInput carries a peer connectivity change detected by
// network.HeartbeatMonitor. Step turns it into a PeerConnected or
// PeerDisconnected ClientEffect and leaves HeadState unchanged.
type NetworkLivenessInput struct {
	Peer      party.Party
	Connected bool
}

func (NetworkLivenessInput) isInput() {}
