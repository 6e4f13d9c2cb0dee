// Package chain is the head protocol's Chain Observer Adapter: the single
// place that polls an external settlement-chain indexer and turns what it
// finds into headlogic.ChainEvent values, and the single place that submits
// headlogic.PostChainTx values back to that chain. headlogic.Step itself
// never does I/O (spec.md §9's explicit re-architecture note: "chain
// adapter takes a closure, acquires its own mutex, loops calling chain
// client for new txs/confirmations, translates them into headlogic event
// types"); this package is the impure shell around that pure core,
// structurally grounded on babble's node.fastForward/getBestFastForwardResponse
// poll-then-translate shape.
package chain

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/headlogic"
)

// Submitter is the collaborator that knows how to post a PostChainTx to the
// real settlement chain. It plays the role babble's proxy.AppProxy plays
// for the application layer: the core and this adapter are generic over it,
// and a trivial in-memory implementation stands in for it in tests the same
// way dummy/state/state.go stands in for a real application.
type Submitter interface {
	Submit(tx headlogic.PostChainTx) error
}

// PostFailure reports that Submitter.Submit failed for a posted tx. The
// node runtime is responsible for turning this into a
// headlogic.PostTxOnChainFailed ClientOutput; this package only observes
// and reports, it never constructs headlogic types outside ChainEvent/
// PostChainTx.
type PostFailure struct {
	Tx     headlogic.PostChainTx
	Reason string
}

// PollFunc asks the chain client for anything new since last, returning the
// updated chainstate.State (nil if unchanged) and an observed ChainEvent
// (nil if nothing happened this poll). It is supplied by node wiring, not
// by this package, so chain stays free of any concrete indexer dependency.
type PollFunc func(last chainstate.State) (*chainstate.State, headlogic.ChainEvent)

// Adapter owns the poll loop and the submit loop, both served by the one
// goroutine that Observe starts (Post only queues until Observe has been
// called), following the one-goroutine-per-producer concurrency model
// (spec.md §9 concurrency model): this package is one of those producers,
// the node runtime's dequeue loop is the sole consumer.
type Adapter struct {
	interval time.Duration
	logger   *logrus.Entry
	submit   Submitter

	mu      sync.Mutex
	current chainstate.State

	events   chan headlogic.ChainEvent
	failures chan PostFailure
	submitCh chan headlogic.PostChainTx
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewAdapter builds an Adapter starting from the chain-observer state
// initial, polling at interval, submitting transactions via submit.
func NewAdapter(initial chainstate.State, interval time.Duration, submit Submitter, logger *logrus.Entry) *Adapter {
	return &Adapter{
		interval: interval,
		logger:   logger,
		submit:   submit,
		current:  initial,
		events:   make(chan headlogic.ChainEvent, 64),
		failures: make(chan PostFailure, 16),
		submitCh: make(chan headlogic.PostChainTx, 16),
		doneCh:   make(chan struct{}),
	}
}

// Events is the channel the node runtime's consumer loop selects on to
// receive chain-observed events as ChainInput.
func (a *Adapter) Events() <-chan headlogic.ChainEvent { return a.events }

// Failures is the channel of asynchronous Post failures.
func (a *Adapter) Failures() <-chan PostFailure { return a.failures }

// Observe starts the adapter's background poll loop, calling poll every
// interval under the adapter's own mutex and delivering any resulting
// ChainEvent on Events(). It returns immediately; call Close to stop.
func (a *Adapter) Observe(poll PollFunc) {
	go a.run(poll)
}

func (a *Adapter) run(poll PollFunc) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.doneCh:
			return
		case tx := <-a.submitCh:
			a.doSubmit(tx)
		case <-ticker.C:
			a.doPoll(poll)
		}
	}
}

func (a *Adapter) doPoll(poll PollFunc) {
	a.mu.Lock()
	newState, event := poll(a.current)
	if newState != nil {
		a.current = *newState
	}
	a.mu.Unlock()

	if event != nil {
		a.logger.WithField("event", event).Debug("observed chain event")
		a.events <- event
	}
}

func (a *Adapter) doSubmit(tx headlogic.PostChainTx) {
	if err := a.submit.Submit(tx); err != nil {
		a.logger.WithError(err).Warn("chain submit failed")
		a.failures <- PostFailure{Tx: tx, Reason: err.Error()}
	}
}

// Post submits tx asynchronously; a submission failure is reported on
// Failures(), never returned here, since the caller (the node runtime) has
// already moved on to the next queued input by the time the chain responds
// (spec.md §4.3.3: posting is fire-and-forget from the core's perspective).
func (a *Adapter) Post(tx headlogic.PostChainTx) {
	select {
	case a.submitCh <- tx:
	default:
		a.failures <- PostFailure{Tx: tx, Reason: "submit queue full"}
	}
}

// Close stops the poll and submit loops. Safe to call more than once.
func (a *Adapter) Close() {
	a.stopOnce.Do(func() { close(a.doneCh) })
}
