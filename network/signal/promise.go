package signal

import "github.com/pion/webrtc/v2"

// OfferPromiseResponse wraps the SDP answer (or error) produced in response
// to an OfferPromise.
type OfferPromiseResponse struct {
	Answer *webrtc.SessionDescription
	Error  error
}

// OfferPromise carries one inbound SDP offer plus a response channel, so the
// WebRTCStreamLayer can answer it asynchronously once the local
// PeerConnection is ready.
type OfferPromise struct {
	From     string
	Offer    webrtc.SessionDescription
	RespChan chan<- OfferPromiseResponse
}

// Respond answers the offer with an SDP answer and/or an error.
func (p *OfferPromise) Respond(answer *webrtc.SessionDescription, err error) {
	p.RespChan <- OfferPromiseResponse{answer, err}
}
