// Package apiserver implements the per-subscriber WebSocket client API
// spec.md §6 describes: one goroutine per connected client, a
// Greetings handshake, a push stream of ClientOutput values formatted per
// connection, and inbound ClientCommand messages fed back into the node
// runtime's queue. It is grounded on service/service.go's HTTP handler
// registration (health endpoint, CORS) and on yosrahelal-paladin's
// rpcserver/websockets.go for the connection lifecycle.
package apiserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hydra-head/hydra-node/headlogic"
	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/node"
	"github.com/hydra-head/hydra-node/party"
)

// Runtime is the subset of *node.Runtime the API server depends on; kept
// narrow so tests can supply a fake.
type Runtime interface {
	Outputs() *node.OutputBroadcaster
	Enqueue(headlogic.Input) uint64
	State() headstate.HeadState
}

// Server is the head's client-facing HTTP/WebSocket endpoint.
type Server struct {
	bindAddress      string
	runtime          Runtime
	ledger           ledger.Ledger
	txDecoder        TxDecoder
	utxoDecoder      UTxODecoder
	subscriberBuffer int
	logger           *logrus.Entry

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu          sync.Mutex
	connections map[string]*connection
}

// NewServer wires a Server; subscriberBuffer bounds each client's own
// outbound queue (spec.md §4.4) before a slow client starts losing outputs
// to OutputBroadcaster's drop-oldest policy.
func NewServer(bindAddress string, runtime Runtime, l ledger.Ledger, txDec TxDecoder, utxoDec UTxODecoder, subscriberBuffer int, logger *logrus.Entry) *Server {
	s := &Server{
		bindAddress:      bindAddress,
		runtime:          runtime,
		ledger:           l,
		txDecoder:        txDec,
		utxoDecoder:      utxoDec,
		subscriberBuffer: subscriberBuffer,
		logger:           logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:         http.NewServeMux(),
		connections: make(map[string]*connection),
	}
	s.registerHandlers()
	return s
}

// registerHandlers mirrors service/service.go's makeHandler/CORS pattern,
// registered on this Server's own mux rather than http.DefaultServeMux: the
// client API is its own listener, not one sharing an address:port with
// another in-process HTTP server the way babble's Service sometimes does.
func (s *Server) registerHandlers() {
	s.mux.HandleFunc("/", s.makeHandler(s.handleWebSocket))
	s.mux.HandleFunc("/healthz", s.makeHandler(s.handleHealth))
}

func (s *Server) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		fn(w, r)
	}
}

// Serve blocks, the same way service.Service.Serve does.
func (s *Server) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Info("apiserver: serving client API")
	return http.ListenAndServe(s.bindAddress, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("apiserver: websocket upgrade failed")
		return
	}

	opts := optionsFromQuery(r)
	c := newConnection(s, conn, opts)

	s.mu.Lock()
	s.connections[c.id] = c
	s.mu.Unlock()

	go c.run()
}

// Handler exposes the server's mux for embedding in a test httptest.Server
// or another process's own listener.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) forgetConnection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, id)
}

func (s *Server) headID() party.HeadId {
	switch st := s.runtime.State().(type) {
	case headstate.Initial:
		return st.HeadID
	case headstate.Open:
		return st.HeadID
	case headstate.Closed:
		return st.HeadID
	case headstate.Final:
		return st.HeadID
	default:
		return ""
	}
}

// optionsFromQuery parses the per-connection formatting switches from the
// WebSocket upgrade request's query string (spec.md §6).
func optionsFromQuery(r *http.Request) Options {
	o := DefaultOptions()
	q := r.URL.Query()
	if v := q.Get("transaction"); v == "cbor-hex" {
		o.TransactionMode = "cbor-hex"
	}
	if v := q.Get("utxoInSnapshot"); v == "omit" {
		o.UTxOInSnapshot = "omit"
	}
	return o
}
