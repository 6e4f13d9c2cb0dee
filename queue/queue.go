// Package queue implements the single-producer-multi-source input FIFO
// (spec.md §4.1, C1): the chain observer, the network transports, and the
// API server each enqueue inputs; the node runtime is the sole consumer.
// It generalizes the channel-based fan-in babble's node.Node.Run performs
// over netCh/submitCh/commitCh into one typed, sequence-stamped queue, so
// that dequeue order really is the linearization point spec.md §5 requires.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Dequeue once the queue has been shut down and
// drained.
var ErrClosed = errors.New("queue: closed")

// Envelope pairs an Item with the monotonic sequence id assigned to it at
// enqueue time. The node runtime does not carry Seq into client outputs:
// apiserver numbers each connection's outputs with its own counter.
type Envelope struct {
	Seq  uint64
	Item interface{}
}

// Queue is a strictly-ordered, gap-free FIFO. The zero value is not usable;
// construct with New.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []Envelope
	nextSeq uint64
	maxSize int // 0 = unbounded
	closed  bool
}

// New returns an unbounded Queue.
func New() *Queue {
	return NewBounded(0)
}

// NewBounded returns a Queue that blocks Enqueue once it holds maxSize
// items (0 = unbounded, the default). Bounding is optional per spec.md §4.1
// ("backpressure neutral (bounded optional)").
func NewBounded(maxSize int) *Queue {
	q := &Queue{
		items:   make([]Envelope, 0, 16),
		nextSeq: 1,
		maxSize: maxSize,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue assigns the next strictly monotonic sequence id to item and
// appends it, waking any blocked Dequeue. It returns the assigned id.
func (q *Queue) Enqueue(item interface{}) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.maxSize > 0 && len(q.items) >= q.maxSize && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return 0
	}

	seq := q.nextSeq
	q.nextSeq++
	q.items = append(q.items, Envelope{Seq: seq, Item: item})
	q.cond.Broadcast()

	return seq
}

// Dequeue blocks until an item is available, the queue is shut down
// (returns ErrClosed once drained), or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (Envelope, error) {
	done := make(chan struct{})
	defer close(done)

	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-done:
			}
		}()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			return Envelope{}, ErrClosed
		}
		if ctx != nil && ctx.Err() != nil {
			return Envelope{}, ctx.Err()
		}
		q.cond.Wait()
	}

	env := q.items[0]
	q.items = q.items[1:]
	q.cond.Broadcast() // wake any Enqueue blocked on a bounded queue
	return env, nil
}

// Shutdown wakes every blocked Dequeue with ErrClosed once pending items
// are drained, and unblocks any Enqueue waiting on a full bounded queue.
// Shutdown is idempotent.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the number of items currently queued (for metrics/tests).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
