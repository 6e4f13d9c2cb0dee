package network

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
)

// Transport lets the node runtime send and receive the head protocol's peer
// messages without knowing which StreamLayer backs the connection,
// generalized from net/transport.go's Sync/EagerSync/FastForward/Join
// surface to the head protocol's ReqTx/ReqSn/AckSn/heartbeat surface.
type Transport interface {
	// Listen starts accepting incoming connections; it blocks, so callers
	// run it on its own goroutine, same as babble's Transport.Listen.
	Listen()

	// Consumer yields one RPC per inbound message for the node runtime's
	// dequeue loop to translate into a headlogic.NetworkInput and Step.
	Consumer() <-chan RPC

	LocalAddr() string
	AdvertiseAddr() string

	// SendReqTx, SendReqSn, and SendAckSn deliver one NetworkMessage to
	// target and do not wait for an application-level reply: the protocol
	// that answers them (a later AckSn, a later applied ReqTx) travels back
	// as its own independent message, not as this call's return value.
	SendReqTx(target string, msg headlogic.ReqTx) error
	SendReqSn(target string, msg headlogic.ReqSn) error
	SendAckSn(target string, msg headlogic.AckSn) error

	// SendHeartbeat pings target; an error indicates the peer could not be
	// reached for this heartbeat interval, feeding the liveness loop.
	SendHeartbeat(target string) error

	Close() error
}

// RPC is one inbound message awaiting dispatch, generalized from
// net/rpc.go's RPC/RPCResponse: unlike babble's request/response gossip,
// head-protocol messages are fire-and-forget broadcasts, so Respond only
// ever carries an error (nil on success) and no response payload.
type RPC struct {
	Sender   party.Party
	Message  headlogic.NetworkMessage
	RespChan chan<- error
}

// Respond acknowledges receipt of the RPC, releasing the sender's connection.
func (r *RPC) Respond(err error) {
	r.RespChan <- err
}

const (
	msgReqTx uint8 = iota
	msgReqSn
	msgAckSn
	msgHeartbeat
)

const bufSize = math.MaxUint16

// ErrTransportShutdown is returned by operations invoked after Close.
var ErrTransportShutdown = errors.New("network: transport shutdown")

// PeerTransport is the one generic, StreamLayer-agnostic implementation of
// Transport, grounded on net/net_transport.go's NetworkTransport: a
// connection pool keyed by target address, one leading type byte per
// message framing the body, canonical CBOR for the body instead of json so
// the same wire.Marshal/Unmarshal story serves persistence and the network.
type PeerTransport struct {
	logger *logrus.Entry
	stream StreamLayer
	ledger ledger.Ledger
	local  party.Party

	connPool     map[string][]*pooledConn
	connPoolLock sync.Mutex
	maxPool      int
	timeout      time.Duration

	consumeCh chan RPC

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex
}

type pooledConn struct {
	target string
	conn   net.Conn
	r      *bufio.Reader
	w      *bufio.Writer
}

func (c *pooledConn) Release() error { return c.conn.Close() }

// NewPeerTransport wires stream as the backend for a new PeerTransport.
// local's VerificationKeyHex is written as the sender of every outbound
// frame; the receiving PeerTransport reports it as RPC.Sender.
func NewPeerTransport(
	stream StreamLayer,
	l ledger.Ledger,
	local party.Party,
	maxPool int,
	timeout time.Duration,
	logger *logrus.Entry,
) *PeerTransport {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &PeerTransport{
		logger:     logger,
		stream:     stream,
		ledger:     l,
		local:      local,
		connPool:   make(map[string][]*pooledConn),
		maxPool:    maxPool,
		timeout:    timeout,
		consumeCh:  make(chan RPC),
		shutdownCh: make(chan struct{}),
	}
}

func (t *PeerTransport) Consumer() <-chan RPC   { return t.consumeCh }
func (t *PeerTransport) LocalAddr() string      { return addrString(t.stream.Addr()) }
func (t *PeerTransport) AdvertiseAddr() string  { return t.stream.AdvertiseAddr() }

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

func (t *PeerTransport) Close() error {
	t.shutdownLock.Lock()
	defer t.shutdownLock.Unlock()
	if !t.shutdown {
		close(t.shutdownCh)
		t.stream.Close()
		t.shutdown = true
	}
	return nil
}

func (t *PeerTransport) isShutdown() bool {
	select {
	case <-t.shutdownCh:
		return true
	default:
		return false
	}
}

func (t *PeerTransport) SendReqTx(target string, msg headlogic.ReqTx) error {
	return t.send(target, msgReqTx, msg)
}

func (t *PeerTransport) SendReqSn(target string, msg headlogic.ReqSn) error {
	return t.send(target, msgReqSn, msg)
}

func (t *PeerTransport) SendAckSn(target string, msg headlogic.AckSn) error {
	return t.send(target, msgAckSn, msg)
}

func (t *PeerTransport) SendHeartbeat(target string) error {
	return t.send(target, msgHeartbeat, nil)
}

func (t *PeerTransport) send(target string, kind uint8, msg headlogic.NetworkMessage) error {
	conn, err := t.getConn(target)
	if err != nil {
		return err
	}

	var body []byte
	if msg != nil {
		body, err = EncodeMessage(t.ledger, msg)
		if err != nil {
			conn.Release()
			return err
		}
	}

	if t.timeout > 0 {
		conn.conn.SetDeadline(time.Now().Add(t.timeout))
	}
	if err := writeFrame(conn.w, kind, t.local.VerificationKeyHex, body); err != nil {
		conn.Release()
		return err
	}

	errStr, err := readAck(conn.r)
	if err != nil {
		conn.Release()
		return err
	}
	if errStr != "" {
		t.returnConn(conn)
		return fmt.Errorf("network: peer rejected message: %s", errStr)
	}

	t.returnConn(conn)
	return nil
}

func (t *PeerTransport) getConn(target string) (*pooledConn, error) {
	t.connPoolLock.Lock()
	conns, ok := t.connPool[target]
	if ok && len(conns) > 0 {
		var c *pooledConn
		n := len(conns)
		c, conns[n-1] = conns[n-1], nil
		t.connPool[target] = conns[:n-1]
		t.connPoolLock.Unlock()
		return c, nil
	}
	t.connPoolLock.Unlock()

	conn, err := t.stream.Dial(target, t.timeout)
	if err != nil {
		return nil, err
	}
	return &pooledConn{
		target: target,
		conn:   conn,
		r:      bufio.NewReaderSize(conn, bufSize),
		w:      bufio.NewWriterSize(conn, bufSize),
	}, nil
}

func (t *PeerTransport) returnConn(c *pooledConn) {
	t.connPoolLock.Lock()
	defer t.connPoolLock.Unlock()
	if !t.isShutdown() && len(t.connPool[c.target]) < t.maxPool {
		t.connPool[c.target] = append(t.connPool[c.target], c)
	} else {
		c.Release()
	}
}

// Listen accepts inbound connections until Close, one handler goroutine
// per connection, same shape as net/net_transport.go's Listen/handleConn.
func (t *PeerTransport) Listen() {
	for {
		conn, err := t.stream.Accept()
		if err != nil {
			if t.isShutdown() {
				return
			}
			t.logger.WithError(err).Error("network: failed to accept connection")
			continue
		}
		go t.handleConn(conn)
	}
}

func (t *PeerTransport) handleConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReaderSize(conn, bufSize)
	w := bufio.NewWriterSize(conn, bufSize)

	for {
		if err := t.handleFrame(r, w); err != nil {
			if err != io.EOF && err != ErrTransportShutdown {
				t.logger.WithError(err).Debug("network: connection closed")
			}
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

func (t *PeerTransport) handleFrame(r *bufio.Reader, w *bufio.Writer) error {
	kind, sender, body, err := readFrame(r)
	if err != nil {
		return err
	}

	respCh := make(chan error, 1)
	rpc := RPC{Sender: party.Party{VerificationKeyHex: sender}, RespChan: respCh}

	if kind == msgHeartbeat {
		rpc.Message = nil
	} else {
		msg, err := DecodeMessage(t.ledger, body)
		if err != nil {
			return writeAck(w, err.Error())
		}
		rpc.Message = msg
	}

	select {
	case t.consumeCh <- rpc:
	case <-t.shutdownCh:
		return ErrTransportShutdown
	}

	select {
	case respErr := <-respCh:
		s := ""
		if respErr != nil {
			s = respErr.Error()
		}
		return writeAck(w, s)
	case <-t.shutdownCh:
		return ErrTransportShutdown
	}
}
