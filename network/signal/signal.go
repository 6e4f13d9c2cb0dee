// Package signal provides the SDP offer/answer exchange WebRTCStreamLayer
// needs to establish peer connections before any head-protocol message can
// flow, grounded on net/signal/signal.go.
package signal

import "github.com/pion/webrtc/v2"

// Signal lets peers exchange SDP offers and answers to establish a WebRTC
// PeerConnection out-of-band, before any data channel exists between them.
type Signal interface {
	// Addr is the local address identifying this end of a connection.
	Addr() string

	// Listen starts forwarding incoming SDP offers to Consumer.
	Listen() error

	// Consumer yields incoming SDP offers, each wrapped in a promise the
	// caller answers asynchronously.
	Consumer() <-chan OfferPromise

	// Offer sends an SDP offer to target and waits for its answer.
	Offer(target string, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error)

	// Close releases the signaling connection.
	Close() error
}
