package apiserver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hydra-head/hydra-node/headlogic"
)

// connection is one subscribed websocket client: its own per-client output
// queue (spec.md §4.4 "buffered in the API Server's own per-client queue")
// decoupled from the node runtime's dispatch loop, grounded on
// yosrahelal-paladin's webSocketConnection (listen/sender goroutine pair,
// a send chan []byte, a closing chan struct{}).
type connection struct {
	id      string
	server  *Server
	conn    *websocket.Conn
	options Options

	ctx       context.Context
	cancelCtx context.CancelFunc

	outputs chan headlogic.ClientOutput // from node.OutputBroadcaster
	send    chan []byte                 // serialized frames awaiting write
	closing chan struct{}

	closeMu sync.Mutex
	closed  bool

	publishMu sync.Mutex
	seq       uint64
}

func newConnection(s *Server, conn *websocket.Conn, opts Options) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		id:        uuid.NewString(),
		server:    s,
		conn:      conn,
		options:   opts,
		ctx:       ctx,
		cancelCtx: cancel,
		outputs:   s.runtime.Outputs().Subscribe(s.subscriberBuffer),
		send:      make(chan []byte, s.subscriberBuffer),
		closing:   make(chan struct{}),
	}
}

func (c *connection) run() {
	c.greet()
	go c.forward()
	go c.sender()
	c.listen()
}

// greet sends the one-time Greetings output a freshly connected client
// receives (grounded on service/service.go's initial-handshake response).
func (c *connection) greet() {
	c.publish(headlogic.Greetings{HeadID: c.server.headID()})
}

// forward drains this client's OutputBroadcaster subscription into send,
// applying c.options at serialization time.
func (c *connection) forward() {
	for {
		select {
		case out, ok := <-c.outputs:
			if !ok {
				return
			}
			c.publish(out)
		case <-c.closing:
			return
		}
	}
}

// publish serializes and enqueues out for delivery. It may be called
// concurrently: once from forward's single goroutine and once per inbound
// message from listen's per-message handleMessage goroutines (mirroring
// paladin's websocket connection, which spawns a goroutine per inbound
// message too), so seq assignment is serialized under publishMu.
func (c *connection) publish(out headlogic.ClientOutput) {
	c.publishMu.Lock()
	c.seq++
	seq := c.seq
	c.publishMu.Unlock()

	env := c.options.Envelope(seq, time.Now(), c.server.ledger, out)
	payload, err := json.Marshal(env)
	if err != nil {
		c.server.logger.WithError(err).Error("apiserver: failed to marshal output")
		return
	}
	select {
	case c.send <- payload:
	case <-c.closing:
	}
}

func (c *connection) sender() {
	defer c.close()
	for {
		select {
		case payload := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.server.logger.WithError(err).Debug("apiserver: write failed, closing connection")
				return
			}
		case <-c.closing:
			return
		}
	}
}

func (c *connection) listen() {
	defer c.close()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		go c.handleMessage(raw)
	}
}

func (c *connection) handleMessage(raw []byte) {
	cmd, err := decodeCommand(raw, c.server.txDecoder, c.server.utxoDecoder)
	if err != nil {
		c.publish(headlogic.InvalidInput{Reason: err.Error()})
		return
	}
	c.server.runtime.Enqueue(headlogic.ClientInput{Command: cmd})
}

func (c *connection) close() {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}
	c.closed = true
	c.closeMu.Unlock()

	c.cancelCtx()
	close(c.closing)
	c.server.runtime.Outputs().Unsubscribe(c.outputs)
	c.conn.Close()
	c.server.forgetConnection(c.id)
}

