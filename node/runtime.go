package node

import (
	"context"
	"sync"
	"time"

	"github.com/hydra-head/hydra-node/chain"
	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/network"
	"github.com/hydra-head/hydra-node/partycrypto"
	"github.com/hydra-head/hydra-node/persistence"
	"github.com/hydra-head/hydra-node/queue"
)

// Runtime is the C5 Node Runtime: dequeue -> Step -> persist -> dispatch,
// grounded on node/node.go's Run loop, generalized from babble's
// state-machine dispatch (Babbling/CatchingUp/Joining) to the single
// Step-call-per-input loop spec.md §4 and §5 describe. Runtime owns the
// only mutable copy of HeadState and the only mutation of Environment's
// Checkpoints ring; headlogic.Step itself touches neither directly.
type Runtime struct {
	conf *Config

	queue     *queue.Queue
	transport network.Transport
	chain     *chain.Adapter
	store     persistence.Store
	peers     *PeerBook
	output    *OutputBroadcaster
	heartbeat *network.HeartbeatMonitor

	ledgerImpl ledger.Ledger
	signFn     func(data []byte) (partycrypto.Signature, error)
	verifyFn   func(verificationKeyHex string, data []byte, sig partycrypto.Signature) bool

	mu          sync.Mutex
	state       headstate.HeadState
	checkpoints []headlogic.Checkpoint

	dispatchSem chan struct{}
	wg          sync.WaitGroup
}

// NewRuntime loads the last persisted HeadState (or starts Idle if none
// exists, spec.md §4.2) and wires the collaborators the dispatch loop will
// drive. sign/verify back the Environment's Sign/Verify collaborators
// (typically partycrypto.Sign/Verify closed over this node's own key and a
// map of every party's public key).
func NewRuntime(
	conf *Config,
	q *queue.Queue,
	transport network.Transport,
	chainAdapter *chain.Adapter,
	store persistence.Store,
	peers *PeerBook,
	l ledger.Ledger,
	sign func(data []byte) (partycrypto.Signature, error),
	verify func(verificationKeyHex string, data []byte, sig partycrypto.Signature) bool,
) (*Runtime, error) {
	state, ok, err := store.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		state = headstate.Idle{}
	}

	return &Runtime{
		conf:        conf,
		queue:       q,
		transport:   transport,
		chain:       chainAdapter,
		store:       store,
		peers:       peers,
		output:      NewOutputBroadcaster(),
		ledgerImpl:  l,
		signFn:      sign,
		verifyFn:    verify,
		state:       state,
		dispatchSem: make(chan struct{}, conf.DispatchWorkers),
	}, nil
}

// Outputs returns the broadcaster the apiserver package subscribes to.
func (r *Runtime) Outputs() *OutputBroadcaster { return r.output }

// State returns a snapshot of the current HeadState (for GetUTxOResponse-
// style read-only queries issued outside the Step loop).
func (r *Runtime) State() headstate.HeadState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Enqueue adds input to the runtime's queue; it never blocks the caller
// beyond the queue's own bounding policy.
func (r *Runtime) Enqueue(input headlogic.Input) uint64 {
	return r.queue.Enqueue(input)
}

// AttachHeartbeat wires a liveness monitor whose Events() feed
// NetworkLivenessInput into the queue; Run starts forwarding once called.
func (r *Runtime) AttachHeartbeat(m *network.HeartbeatMonitor) {
	r.heartbeat = m
}

// Run drives the dequeue->Step->persist->dispatch loop until ctx is
// cancelled, the queue is shut down, or saving a new HeadState fails; in
// the last case Run returns the Save error without dispatching that
// step's effects. It also starts the background
// forwarders for the transport's Consumer, the chain adapter's Events, the
// heartbeat monitor's Events (if attached), and a periodic Tick source —
// each simply translates its source into a queued headlogic.Input,
// mirroring node/node.go's doBackgroundWork fan-in of netCh/submitCh.
func (r *Runtime) Run(ctx context.Context) error {
	go r.forwardNetwork(ctx)
	go r.forwardChainEvents(ctx)
	go r.forwardChainFailures(ctx)
	go r.forwardTicks(ctx)
	if r.heartbeat != nil {
		go r.forwardLiveness(ctx)
	}

	for {
		env, err := r.queue.Dequeue(ctx)
		if err != nil {
			r.wg.Wait()
			return err
		}
		if err := r.step(env); err != nil {
			r.wg.Wait()
			return err
		}
	}
}

func (r *Runtime) step(env queue.Envelope) error {
	input, ok := env.Item.(headlogic.Input)
	if !ok {
		r.conf.Logger.WithField("item", env.Item).Warn("node: dropping non-Input queue item")
		return nil
	}

	r.mu.Lock()
	current := r.state
	environment := r.buildEnvironment()
	outcome := headlogic.Step(environment, current, input)
	r.state = outcome.NewState
	if outcome.Checkpoint != nil {
		r.checkpoints = append(r.checkpoints, *outcome.Checkpoint)
		if len(r.checkpoints) > r.conf.CheckpointLimit {
			r.checkpoints = r.checkpoints[len(r.checkpoints)-r.conf.CheckpointLimit:]
		}
	}
	r.mu.Unlock()

	if err := r.store.Save(outcome.NewState); err != nil {
		r.conf.Logger.WithError(err).Error("node: failed to persist head state")
		return err
	}

	for _, effect := range outcome.Effects {
		r.dispatch(effect)
	}
	return nil
}

// buildEnvironment assembles a fresh headlogic.Environment for one Step
// call; must be called with r.mu held, since it reads r.checkpoints.
func (r *Runtime) buildEnvironment() headlogic.Environment {
	checkpoints := make([]headlogic.Checkpoint, len(r.checkpoints))
	copy(checkpoints, r.checkpoints)

	return headlogic.Environment{
		Self:                  r.conf.Self,
		Sign:                  r.sign,
		Verify:                r.verify,
		Ledger:                r.ledger(),
		HeadParameters:        r.conf.HeadParameters,
		SeedTxIn:              r.conf.SeedTxIn,
		Checkpoints:           checkpoints,
		TTLInitial:            r.conf.TTLInitial,
		ContestationExtension: r.conf.ContestationExtension,
	}
}

// sign and verify delegate to the sign/verify functions passed to
// NewRuntime.
func (r *Runtime) sign(data []byte) (partycrypto.Signature, error) {
	return r.signFn(data)
}

func (r *Runtime) verify(verificationKeyHex string, data []byte, sig partycrypto.Signature) bool {
	return r.verifyFn(verificationKeyHex, data, sig)
}

func (r *Runtime) ledger() ledger.Ledger { return r.ledgerImpl }

// dispatch runs one Effect, bounded by conf.DispatchWorkers concurrently
// in-flight dispatches, grounded on node/state/state.go's GoFunc/WGLIMIT
// pattern: effects that would block (network sends, chain posts) never
// stall the Step loop itself.
func (r *Runtime) dispatch(effect headlogic.Effect) {
	switch e := effect.(type) {
	case headlogic.ClientEffect:
		r.output.Publish(e.Output)
	case headlogic.OnChainEffect:
		r.runBounded(func() { r.chain.Post(e.Tx) })
	case headlogic.NetworkBroadcast:
		r.runBounded(func() { r.broadcast(e.Msg) })
	case headlogic.Delay:
		r.runBounded(func() { r.delay(e) })
	}
}

func (r *Runtime) runBounded(f func()) {
	r.dispatchSem <- struct{}{}
	r.wg.Add(1)
	go func() {
		defer func() { <-r.dispatchSem; r.wg.Done() }()
		f()
	}()
}

func (r *Runtime) broadcast(msg headlogic.NetworkMessage) {
	for key, addr := range r.peers.All() {
		var err error
		switch m := msg.(type) {
		case headlogic.ReqTx:
			err = r.transport.SendReqTx(addr, m)
		case headlogic.ReqSn:
			err = r.transport.SendReqSn(addr, m)
		case headlogic.AckSn:
			err = r.transport.SendAckSn(addr, m)
		}
		if err != nil {
			r.conf.Logger.WithError(err).WithField("peer", key).Warn("node: broadcast send failed")
		}
	}
}

func (r *Runtime) delay(e headlogic.Delay) {
	wait := time.Until(e.Until)
	if wait > 0 {
		time.Sleep(wait)
	}
	r.queue.Enqueue(e.Event)
}

func (r *Runtime) forwardNetwork(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rpc, ok := <-r.transport.Consumer():
			if !ok {
				return
			}
			if rpc.Message == nil {
				rpc.Respond(nil)
				continue
			}
			r.queue.Enqueue(headlogic.NetworkInput{Sender: rpc.Sender, Msg: rpc.Message, TTL: r.conf.TTLInitial})
			rpc.Respond(nil)
		}
	}
}

func (r *Runtime) forwardChainEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.chain.Events():
			if !ok {
				return
			}
			r.queue.Enqueue(headlogic.ChainInput{Event: ev})
		}
	}
}

// forwardChainFailures turns an async chain.Adapter submit failure directly
// into a PostTxOnChainFailed ClientOutput, per chain.PostFailure's own
// doc comment ("the node runtime is responsible for turning this into a
// PostTxOnChainFailed ClientOutput"). This bypasses Step entirely: a failed
// submission carries no state transition of its own, only a client
// notification, so there is no reason to round-trip it through the queue.
func (r *Runtime) forwardChainFailures(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-r.chain.Failures():
			if !ok {
				return
			}
			r.output.Publish(headlogic.PostTxOnChainFailed{Tx: f.Tx, Reason: f.Reason})
		}
	}
}

func (r *Runtime) forwardLiveness(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.heartbeat.Events():
			if !ok {
				return
			}
			r.queue.Enqueue(ev)
		}
	}
}

func (r *Runtime) forwardTicks(ctx context.Context) {
	ticker := time.NewTicker(r.conf.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.queue.Enqueue(headlogic.Tick{Now: now})
		}
	}
}
