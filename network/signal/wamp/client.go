package wamp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/wamp"
	webrtc "github.com/pion/webrtc/v2"
	"github.com/sirupsen/logrus"

	"github.com/hydra-head/hydra-node/network/signal"
)

// Client implements signal.Signal by exchanging SDP offers and answers as
// RPC calls over a WAMP router, identifying each party by its
// VerificationKeyHex rather than an arbitrary node ID.
type Client struct {
	verificationKeyHex string
	routerURL          string
	config             client.Config
	wampClient         *client.Client
	consumer           chan signal.OfferPromise
	logger             *logrus.Entry
}

// NewClient connects to the WAMP signaling server at server and returns a
// ready Client identified by verificationKeyHex.
func NewClient(
	server string,
	realm string,
	verificationKeyHex string,
	caFile string,
	insecureSkipVerify bool,
	responseTimeout time.Duration,
	logger *logrus.Entry,
) (*Client, error) {
	cfg := client.Config{
		Realm:           realm,
		ResponseTimeout: responseTimeout,
		Logger:          logger,
	}

	tlscfg := &tls.Config{}

	if insecureSkipVerify {
		logger.Debug("skip verify: accepting any certificate from signal server")
		tlscfg.InsecureSkipVerify = true
	} else if _, err := os.Stat(caFile); os.IsNotExist(err) {
		logger.Debug("no certificate file found, relying on platform trusted certificates")
	} else {
		certPEM, err := ioutil.ReadFile(caFile)
		if err != nil {
			return nil, err
		}

		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(certPEM) {
			return nil, errors.New("network/signal/wamp: failed to import certificate to trust")
		}
		tlscfg.RootCAs = roots

		block, _ := pem.Decode(certPEM)
		if block == nil {
			return nil, errors.New("network/signal/wamp: failed to decode certificate to trust")
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		logger.Debugf("trusting certificate %s with CN %s", caFile, cert.Subject.CommonName)
		tlscfg.ServerName = cert.Subject.CommonName
	}

	cfg.TlsCfg = tlscfg

	c := &Client{
		verificationKeyHex: verificationKeyHex,
		routerURL:          fmt.Sprintf("wss://%s", server),
		config:             cfg,
		consumer:           make(chan signal.OfferPromise),
		logger:             logger,
	}

	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect dials the WAMP router if not already connected.
func (c *Client) Connect() error {
	if c.wampClient != nil && c.wampClient.Connected() {
		return nil
	}
	cli, err := client.ConnectNet(context.Background(), c.routerURL, c.config)
	if err != nil {
		return err
	}
	c.wampClient = cli
	return nil
}

// Addr implements signal.Signal.
func (c *Client) Addr() string { return c.verificationKeyHex }

// Listen registers this party's procedure with the router so offers
// addressed to it are forwarded to Consumer.
func (c *Client) Listen() error {
	if err := c.wampClient.Register(c.verificationKeyHex, c.callHandler, nil); err != nil {
		c.logger.WithError(err).Error("failed to register signaling procedure")
		return err
	}
	c.logger.Debug("registered signaling procedure with router")
	return nil
}

// Offer implements signal.Signal.
func (c *Client) Offer(target string, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	raw, err := json.Marshal(offer)
	if err != nil {
		return nil, err
	}

	callArgs := wamp.List{c.verificationKeyHex, string(raw)}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.ResponseTimeout)
	defer cancel()

	result, err := c.wampClient.Call(ctx, target, nil, callArgs, nil, nil)
	if err != nil {
		c.logger.WithError(err).Error("signaling call failed")
		return nil, err
	}

	sdp, ok := wamp.AsString(result.Arguments[0])
	if !ok {
		return nil, errors.New("network/signal/wamp: malformed answer argument")
	}

	answer := webrtc.SessionDescription{}
	if err := json.Unmarshal([]byte(sdp), &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// Consumer implements signal.Signal.
func (c *Client) Consumer() <-chan signal.OfferPromise { return c.consumer }

// Close unregisters this party's procedure and disconnects from the router.
func (c *Client) Close() error {
	c.wampClient.Unregister(c.verificationKeyHex)
	return c.wampClient.Close()
}

func (c *Client) callHandler(ctx context.Context, inv *wamp.Invocation) client.InvokeResult {
	if len(inv.Arguments) != 2 {
		return errResult(fmt.Sprintf("invocation should contain 2 arguments, not %d", len(inv.Arguments)))
	}

	from, ok := wamp.AsString(inv.Arguments[0])
	if !ok {
		return errResult("error reading invocation sender argument")
	}

	sdp, ok := wamp.AsString(inv.Arguments[1])
	if !ok {
		return errResult("error reading invocation SDP argument")
	}

	offer := webrtc.SessionDescription{}
	if err := json.Unmarshal([]byte(sdp), &offer); err != nil {
		return errResult(fmt.Sprintf("error parsing offer SDP: %v", err))
	}

	respCh := make(chan signal.OfferPromiseResponse, 1)
	c.consumer <- signal.OfferPromise{From: from, Offer: offer, RespChan: respCh}

	timer := time.NewTimer(c.config.ResponseTimeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		return errResult("callee timeout")
	case resp := <-respCh:
		if resp.Error != nil {
			return errResult(resp.Error.Error())
		}
		raw, err := json.Marshal(resp.Answer)
		if err != nil {
			return errResult(fmt.Sprintf("error marshaling answer: %v", err))
		}
		return client.InvokeResult{Args: wamp.List{string(raw)}}
	}
}

func errResult(msg string) client.InvokeResult {
	return client.InvokeResult{Err: ErrProcessingOffer, Args: wamp.List{msg}}
}
