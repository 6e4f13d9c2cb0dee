package headlogic

import "github.com/hydra-head/hydra-node/headstate"

// Step is the single entry point: a pure function from (env, state, input)
// to an Outcome (spec.md §4.3). It performs no I/O and takes no mutex; the
// node runtime is the only caller and owns all of that.
func Step(env Environment, state headstate.HeadState, input Input) Outcome {
	switch in := input.(type) {
	case ClientInput:
		return stepClient(env, state, in.Command)
	case NetworkInput:
		return stepNetwork(env, state, in)
	case ChainInput:
		return stepChain(env, state, in.Event)
	case Tick:
		return stepTick(state, in)
	case NetworkLivenessInput:
		return stepNetworkLiveness(state, in)
	default:
		return unchanged(state)
	}
}

func stepNetworkLiveness(state headstate.HeadState, in NetworkLivenessInput) Outcome {
	var output ClientOutput
	if in.Connected {
		output = PeerConnected{Peer: in.Peer}
	} else {
		output = PeerDisconnected{Peer: in.Peer}
	}
	return unchanged(state, ClientEffect{output})
}
