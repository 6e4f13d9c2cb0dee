package network

import (
	"fmt"
	"net"
	"time"

	"github.com/nknorg/nkn-sdk-go"
	"github.com/sirupsen/logrus"

	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
)

// nknStreamLayer implements StreamLayer over the NKN overlay network,
// grounded on net/nkn_stream_layer.go: unlike TCP, addresses are NKN
// identities rather than sockets, so Addr/Dial resolve through the
// multiclient rather than the OS network stack.
type nknStreamLayer struct {
	multiclient *nkn.MultiClient
}

func (n *nknStreamLayer) Accept() (net.Conn, error) { return n.multiclient.Accept() }
func (n *nknStreamLayer) Close() error              { return n.multiclient.Close() }
func (n *nknStreamLayer) Addr() net.Addr            { return n.multiclient.Addr() }

func (n *nknStreamLayer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	cfg := &nkn.DialConfig{DialTimeout: int32(timeout.Milliseconds())}
	return n.multiclient.DialWithConfig(address, cfg)
}

func (n *nknStreamLayer) AdvertiseAddr() string { return n.multiclient.Address() }

// NewNKNTransport returns a PeerTransport backed by an NKN overlay
// connection, grounded on net/nkn_transport.go.
func NewNKNTransport(
	account *nkn.Account,
	baseIdentifier string,
	numSubClients int,
	nknConfig *nkn.ClientConfig,
	connectTimeout time.Duration,
	l ledger.Ledger,
	local party.Party,
	maxPool int,
	timeout time.Duration,
	logger *logrus.Entry,
) (*PeerTransport, error) {
	multiclient, err := nkn.NewMultiClient(account, baseIdentifier, numSubClients, false, nknConfig)
	if err != nil {
		return nil, err
	}

	select {
	case <-time.After(connectTimeout):
		return nil, fmt.Errorf("network: timeout connecting to nkn")
	case <-multiclient.OnConnect.C:
	}

	if err := multiclient.Listen(nil); err != nil {
		return nil, err
	}

	stream := &nknStreamLayer{multiclient: multiclient}
	return NewPeerTransport(stream, l, local, maxPool, timeout, logger), nil
}
