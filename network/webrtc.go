package network

import (
	"fmt"
	"net"
	"time"

	"github.com/pion/datachannel"
	webrtc "github.com/pion/webrtc/v2"
	"github.com/sirupsen/logrus"

	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/network/signal"
	"github.com/hydra-head/hydra-node/party"
)

// webrtcConn adapts a detached WebRTC data channel to net.Conn, grounded on
// net/webrtc_conn.go: WebRTC data channels have no address concept once
// detached, so the address methods are stubs.
type webrtcConn struct {
	dataChannel datachannel.ReadWriteCloser
}

func newWebRTCConn(dc datachannel.ReadWriteCloser) *webrtcConn { return &webrtcConn{dataChannel: dc} }

func (c *webrtcConn) Read(p []byte) (int, error)  { return c.dataChannel.Read(p) }
func (c *webrtcConn) Write(p []byte) (int, error) { return c.dataChannel.Write(p) }
func (c *webrtcConn) Close() error                { return c.dataChannel.Close() }
func (c *webrtcConn) LocalAddr() net.Addr         { return nil }
func (c *webrtcConn) RemoteAddr() net.Addr        { return nil }
func (c *webrtcConn) SetDeadline(t time.Time) error      { return nil }
func (c *webrtcConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *webrtcConn) SetWriteDeadline(t time.Time) error { return nil }

// WebRTCStreamLayer implements StreamLayer over pion/webrtc data channels,
// with peer connections negotiated through a signal.Signal instead of a
// direct socket dial, grounded on net/webrtc_stream_layer.go.
type WebRTCStreamLayer struct {
	peerConnections map[string]*webrtc.PeerConnection
	dataChannels    map[uint16]datachannel.ReadWriteCloser
	signal          signal.Signal
	iceServers      []webrtc.ICEServer
	incoming        chan net.Conn
	logger          *logrus.Entry
}

func newWebRTCStreamLayer(sig signal.Signal, iceServers []webrtc.ICEServer, logger *logrus.Entry) *WebRTCStreamLayer {
	return &WebRTCStreamLayer{
		peerConnections: make(map[string]*webrtc.PeerConnection),
		dataChannels:    make(map[uint16]datachannel.ReadWriteCloser),
		signal:          sig,
		iceServers:      iceServers,
		incoming:        make(chan net.Conn),
		logger:          logger,
	}
}

func (w *WebRTCStreamLayer) listen() error {
	go w.signal.Listen()

	for offerPromise := range w.signal.Consumer() {
		w.logger.Debug("processing inbound SDP offer")

		pc, err := w.newPeerConnection(w.incoming, false)
		if err != nil {
			return err
		}
		if err := pc.SetRemoteDescription(offerPromise.Offer); err != nil {
			return err
		}

		answer, err := pc.CreateAnswer(nil)
		if err != nil {
			return err
		}
		if err := pc.SetLocalDescription(answer); err != nil {
			return err
		}

		offerPromise.Respond(&answer, nil)
		w.peerConnections[offerPromise.From] = pc
	}
	return nil
}

func (w *WebRTCStreamLayer) newPeerConnection(connCh chan net.Conn, createDataChannel bool) (*webrtc.PeerConnection, error) {
	s := webrtc.SettingEngine{}
	s.DetachDataChannels()
	api := webrtc.NewAPI(webrtc.WithSettingEngine(s))

	config := webrtc.Configuration{ICEServers: w.iceServers}
	pc, err := api.NewPeerConnection(config)
	if err != nil {
		return nil, err
	}

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		w.logger.WithField("state", state.String()).Debug("ICE connection state changed")
	})

	if createDataChannel {
		dc, err := pc.CreateDataChannel("head", nil)
		if err != nil {
			return nil, err
		}
		w.pipeDataChannel(dc, connCh)
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			w.pipeDataChannel(dc, connCh)
		})
	}

	return pc, nil
}

func (w *WebRTCStreamLayer) pipeDataChannel(dc *webrtc.DataChannel, connCh chan net.Conn) {
	dc.OnOpen(func() {
		raw, err := dc.Detach()
		if err != nil {
			w.logger.WithError(err).Error("failed to detach data channel")
			return
		}
		w.dataChannels[*dc.ID()] = raw
		connCh <- newWebRTCConn(raw)
	})
}

// Dial implements StreamLayer: it offers target an SDP description through
// the signal, then waits for the resulting data channel to open.
func (w *WebRTCStreamLayer) Dial(target string, timeout time.Duration) (net.Conn, error) {
	connCh := make(chan net.Conn)

	pc, err := w.newPeerConnection(connCh, true)
	if err != nil {
		return nil, err
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}

	answer, err := w.signal.Offer(target, offer)
	if err != nil {
		return nil, err
	}
	if answer == nil {
		return nil, fmt.Errorf("network: no SDP answer from %s", target)
	}

	if err := pc.SetRemoteDescription(*answer); err != nil {
		return nil, err
	}
	w.peerConnections[target] = pc

	select {
	case <-time.After(timeout):
		return nil, fmt.Errorf("network: dial to %s timed out", target)
	case conn := <-connCh:
		return conn, nil
	}
}

func (w *WebRTCStreamLayer) Accept() (net.Conn, error) {
	return <-w.incoming, nil
}

func (w *WebRTCStreamLayer) Close() error {
	w.signal.Close()
	for _, pc := range w.peerConnections {
		pc.Close()
	}
	for _, dc := range w.dataChannels {
		dc.Close()
	}
	return nil
}

func (w *WebRTCStreamLayer) Addr() net.Addr          { return nil }
func (w *WebRTCStreamLayer) AdvertiseAddr() string   { return w.signal.Addr() }

// NewWebRTCTransport returns a PeerTransport backed by a WebRTC data channel
// stream, negotiated through sig, grounded on net/webrtc_transport.go.
func NewWebRTCTransport(
	sig signal.Signal,
	iceServers []webrtc.ICEServer,
	l ledger.Ledger,
	local party.Party,
	maxPool int,
	timeout time.Duration,
	logger *logrus.Entry,
) (*PeerTransport, error) {
	stream := newWebRTCStreamLayer(sig, iceServers, logger)
	go stream.listen()
	return NewPeerTransport(stream, l, local, maxPool, timeout, logger), nil
}
