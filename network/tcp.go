package network

import (
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
)

var (
	errNotAdvertisable = errors.New("network: local bind address is not advertisable")
	errNotTCP          = errors.New("network: local address is not a TCP address")
)

// TCPStreamLayer implements StreamLayer over plain TCP sockets, grounded on
// net/tcp_transport.go's TCPStreamLayer.
type TCPStreamLayer struct {
	advertise string
	listener  *net.TCPListener
}

func (t *TCPStreamLayer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", address, timeout)
}

func (t *TCPStreamLayer) Accept() (net.Conn, error) { return t.listener.Accept() }

func (t *TCPStreamLayer) Close() error {
	lnFile, _ := t.listener.File()
	if err := t.listener.Close(); err != nil {
		return err
	}
	if lnFile != nil {
		return lnFile.Close()
	}
	return nil
}

func (t *TCPStreamLayer) Addr() net.Addr { return t.listener.Addr() }

func (t *TCPStreamLayer) AdvertiseAddr() string {
	if t.advertise != "" {
		return t.advertise
	}
	return t.listener.Addr().String()
}

// NewTCPTransport binds bindAddr and returns a PeerTransport over plain TCP.
func NewTCPTransport(
	bindAddr string,
	advertiseAddr string,
	l ledger.Ledger,
	local party.Party,
	maxPool int,
	timeout time.Duration,
	logger *logrus.Entry,
) (*PeerTransport, error) {
	list, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	var resolvedAdvertise net.Addr
	if advertiseAddr != "" {
		resolvedAdvertise, err = net.ResolveTCPAddr("tcp", advertiseAddr)
		if err != nil {
			list.Close()
			return nil, err
		}
	} else {
		resolvedAdvertise = list.Addr()
	}

	addr, ok := resolvedAdvertise.(*net.TCPAddr)
	if !ok {
		list.Close()
		return nil, errNotTCP
	}
	if addr.IP.IsUnspecified() {
		list.Close()
		return nil, errNotAdvertisable
	}

	stream := &TCPStreamLayer{advertise: advertiseAddr, listener: list.(*net.TCPListener)}
	return NewPeerTransport(stream, l, local, maxPool, timeout, logger), nil
}
