package node

import (
	"sync"

	"github.com/hydra-head/hydra-node/headlogic"
)

// OutputBroadcaster fans ClientOutput values out to every subscriber
// (spec.md §4.4: "the runtime never drops a ClientEffect; a slow client's
// own bounded queue absorbs backpressure, not this effect"), grounded on
// the subscribe/unsubscribe-channel pattern of a pub/sub broadcaster rather
// than service/service.go's plain request/response HTTP handlers, since the
// API here is a push stream (apiserver subscribes one channel per client).
type OutputBroadcaster struct {
	mu          sync.Mutex
	subscribers map[chan headlogic.ClientOutput]struct{}
}

// NewOutputBroadcaster returns an empty broadcaster.
func NewOutputBroadcaster() *OutputBroadcaster {
	return &OutputBroadcaster{subscribers: make(map[chan headlogic.ClientOutput]struct{})}
}

// Subscribe registers a new subscriber channel, buffered so a momentarily
// slow reader never blocks Publish; capacity is the subscriber's own
// backpressure budget.
func (b *OutputBroadcaster) Subscribe(capacity int) chan headlogic.ClientOutput {
	ch := make(chan headlogic.ClientOutput, capacity)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes ch.
func (b *OutputBroadcaster) Unsubscribe(ch chan headlogic.ClientOutput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Publish delivers output to every current subscriber. A subscriber whose
// buffer is full has its oldest pending output dropped to make room, rather
// than blocking the dispatch loop or dropping the newest output silently.
func (b *OutputBroadcaster) Publish(output headlogic.ClientOutput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- output:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- output:
			default:
			}
		}
	}
}
