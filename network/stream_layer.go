package network

import (
	"net"
	"time"
)

// StreamLayer is the low-level stream abstraction PeerTransport is built on,
// unchanged in shape from net/stream_layer.go: TCP, WebRTC, and NKN each
// supply their own implementation and share the one PeerTransport framing
// and connection-pool logic above it.
type StreamLayer interface {
	net.Listener

	// Dial opens a new outgoing connection to address.
	Dial(address string, timeout time.Duration) (net.Conn, error)

	// AdvertiseAddr returns the publicly-reachable address of this stream.
	AdvertiseAddr() string
}
