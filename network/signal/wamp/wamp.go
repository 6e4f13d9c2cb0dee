// Package wamp implements WebRTC signaling as RPC calls over a WAMP router,
// grounded on net/signal/wamp: each party registers a procedure named after
// its own verification key, and offers a peer SDP offer by calling the
// target party's procedure and waiting for the SDP answer in the result.
package wamp

const (
	// ErrProcessingOffer indicates that the callee ran into an error while
	// processing an incoming SDP offer.
	ErrProcessingOffer = "head.signal.processing_offer"
)
