package command

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nkn "github.com/nknorg/nkn-sdk-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/hydra-head/hydra-node/apiserver"
	"github.com/hydra-head/hydra-node/chain"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/network"
	"github.com/hydra-head/hydra-node/network/signal/wamp"
	"github.com/hydra-head/hydra-node/node"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/partycrypto"
	"github.com/hydra-head/hydra-node/persistence"
	"github.com/hydra-head/hydra-node/queue"
)

// defaultMaxPool and defaultDialTimeout are this command's own transport
// tuning defaults, mirroring the constants cmd/babble/command/run.go passes
// as MaxPool/TCPTimeout flags.
const (
	defaultMaxPool     = 4
	defaultDialTimeout = 10 * time.Second
)

// NewRunCmd returns the command that starts a head-protocol node, grounded
// on cmd/babble/commands/run.go's NewRunCmd (PreRunE binds flags into a
// package-level config struct, RunE does the actual wiring).
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a head-protocol node",
		PreRunE: loadRunConfig,
		RunE:    runNode,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", runOpts.Host, "Listen host for the peer-to-peer network")
	cmd.Flags().Int("port", runOpts.Port, "Listen port for the peer-to-peer network")
	cmd.Flags().StringSlice("peers", runOpts.Peers, "Other parties, as verificationKeyHex@host:port")

	cmd.Flags().String("api-host", runOpts.APIHost, "Listen host for the client API")
	cmd.Flags().Int("api-port", runOpts.APIPort, "Listen port for the client API")
	cmd.Flags().Int("monitoring-port", runOpts.MonitoringPort, "Listen port for the metrics/health endpoint")

	cmd.Flags().String("persistence-dir", runOpts.PersistenceDir, "Directory for the persisted head state and node key")
	cmd.Flags().String("verbosity", runOpts.Verbosity, "debug, info, warn, error, fatal, panic")

	cmd.Flags().String("chain-config", runOpts.ChainConfig, "Path to the settlement-chain client configuration")
	cmd.Flags().String("ledger-config", runOpts.LedgerConfig, "Path to the ledger implementation configuration")
	cmd.Flags().String("hydra-scripts-tx-id", runOpts.HydraScriptsTxID, "Transaction id under which the head scripts were published")
	cmd.Flags().String("seed-tx-in", runOpts.SeedTxIn, "Transaction input this node will anchor a new head to on Init")
	cmd.Flags().Int("contestation-period-seconds", runOpts.ContestationSecs, "Contestation period, in seconds")
	cmd.Flags().Int("chain-poll-seconds", runOpts.ChainPollSeconds, "Chain observer poll interval, in seconds")
	cmd.Flags().Int("api-subscriber-buffer", runOpts.APISubscriberSize, "Per-client output queue size")

	cmd.Flags().String("transport", runOpts.Transport, "tcp, webrtc, or nkn")
	cmd.Flags().String("advertise-addr", runOpts.AdvertiseAddr, "Address advertised to peers (defaults to host:port)")

	cmd.Flags().String("webrtc-signal-url", runOpts.WebRTCSignalURL, "WAMP signaling server URL (transport=webrtc)")
	cmd.Flags().String("webrtc-realm", runOpts.WebRTCRealm, "WAMP realm (transport=webrtc)")

	cmd.Flags().String("nkn-seed-hex", runOpts.NKNSeedHex, "Hex-encoded NKN account seed (transport=nkn)")
	cmd.Flags().String("nkn-identifier", runOpts.NKNIdentifier, "NKN multiclient base identifier (transport=nkn)")
	cmd.Flags().Int("nkn-num-subclients", runOpts.NKNNumSubClients, "NKN multiclient subclient count (transport=nkn)")
	cmd.Flags().Int("nkn-connect-timeout-seconds", runOpts.NKNConnectTimeout, "NKN connection timeout, in seconds (transport=nkn)")

	cmd.Flags().Bool("store", runOpts.Store, "Use BadgerLog instead of FileLog for persistence")
}

func loadRunConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd, runOpts); err != nil {
		return err
	}

	logger := newLogger(runOpts.Verbosity)
	logger.WithFields(logrus.Fields{
		"host":           runOpts.Host,
		"port":           runOpts.Port,
		"peers":          runOpts.Peers,
		"apiHost":        runOpts.APIHost,
		"apiPort":        runOpts.APIPort,
		"monitoringPort": runOpts.MonitoringPort,
		"persistenceDir": runOpts.PersistenceDir,
		"transport":      runOpts.Transport,
	}).Debug("RUN")

	return nil
}

func newLogger(verbosity string) *logrus.Entry {
	l := logrus.New()
	l.SetLevel(parseLogLevel(verbosity))
	l.Formatter = new(prefixed.TextFormatter)
	return logrus.NewEntry(l).WithField("prefix", "hydra-node")
}

// runNode wires every collaborator the C5 Node Runtime needs and blocks
// until interrupted, grounded on cmd/babble/command/run.go's runBabble:
// build the transport, build the engine, serve the API in a goroutine,
// run the engine.
func runNode(cmd *cobra.Command, args []string) error {
	logger := newLogger(runOpts.Verbosity)

	pemKey := partycrypto.NewPemKey(runOpts.PersistenceDir)
	priv, err := pemKey.ReadKey()
	if err != nil {
		return fmt.Errorf("command: reading node key: %w", err)
	}
	if priv == nil {
		priv, err = partycrypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("command: generating node key: %w", err)
		}
		if err := pemKey.WriteKey(priv); err != nil {
			return fmt.Errorf("command: persisting node key: %w", err)
		}
		logger.Info("command: generated new node key")
	}

	self := party.Party{VerificationKeyHex: partycrypto.PublicKeyHex(&priv.PublicKey)}

	env, err := initEnvironment(self, runOpts)
	if err != nil {
		return err
	}

	l := ledger.NewSimpleLedger()

	store, err := openStore(runOpts, l)
	if err != nil {
		return fmt.Errorf("command: opening persistence store: %w", err)
	}
	defer store.Close()

	transport, err := newTransport(runOpts, l, self, logger)
	if err != nil {
		return fmt.Errorf("command: building transport: %w", err)
	}
	go transport.Listen()

	peers := node.NewPeerBook()
	for _, p := range env.otherParties {
		if addr, ok := env.peerAddrs[p.VerificationKeyHex]; ok {
			peers.Set(p, addr)
		}
	}

	verifiers := buildVerifiers(append([]party.Party{self}, env.otherParties...))
	sign := func(data []byte) (partycrypto.Signature, error) { return partycrypto.Sign(priv, data) }
	verify := func(keyHex string, data []byte, sig partycrypto.Signature) bool {
		pub, ok := verifiers[keyHex]
		return ok && partycrypto.Verify(pub, data, sig)
	}

	chainClient := chain.NewSimpleChain(l, env.contestationPeriod)
	chainAdapter := chain.NewAdapter(chainClient.InitialState(), time.Duration(runOpts.ChainPollSeconds)*time.Second, chainClient, logger.WithField("component", "chain"))
	chainAdapter.Observe(chainClient.Poll)
	defer chainAdapter.Close()

	conf := node.DefaultConfig(self)
	conf.Logger = logger.WithField("component", "node")
	conf.ContestationExtension = env.contestationPeriod
	conf.HeadParameters = party.NewParameters(append([]party.Party{self}, env.otherParties...), env.contestationPeriod)
	conf.SeedTxIn = runOpts.SeedTxIn

	runtime, err := node.NewRuntime(conf, queue.New(), transport, chainAdapter, store, peers, l, sign, verify)
	if err != nil {
		return fmt.Errorf("command: constructing runtime: %w", err)
	}

	heartbeat := network.NewHeartbeatMonitor(transport, network.DefaultHeartbeatInterval, network.DefaultMissedHeartbeatThreshold)
	for _, p := range env.otherParties {
		if addr, ok := env.peerAddrs[p.VerificationKeyHex]; ok {
			heartbeat.Track(p, addr)
		}
	}
	heartbeat.Start()
	defer heartbeat.Stop()
	runtime.AttachHeartbeat(heartbeat)

	api := apiserver.NewServer(
		fmt.Sprintf("%s:%d", runOpts.APIHost, runOpts.APIPort),
		runtime,
		l,
		simpleTxDecoder(),
		simpleUTxODecoder(),
		runOpts.APISubscriberSize,
		logger.WithField("component", "apiserver"),
	)
	go func() {
		if err := api.Serve(); err != nil {
			logger.WithError(err).Error("command: api server stopped")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info("command: shutting down")
		cancel()
	}()

	return runtime.Run(ctx)
}

// buildVerifiers derives the ecdsa.PublicKey each party's VerificationKeyHex
// stands for, so Runtime's verify closure never has to re-decode hex on
// every call.
func buildVerifiers(parties []party.Party) map[string]*ecdsa.PublicKey {
	out := make(map[string]*ecdsa.PublicKey, len(parties))
	for _, p := range parties {
		raw, err := hex.DecodeString(trimHexPrefix(p.VerificationKeyHex))
		if err != nil {
			continue
		}
		if pub := partycrypto.ToPublicKey(raw); pub != nil {
			out[p.VerificationKeyHex] = pub
		}
	}
	return out
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func openStore(opts *RunOptions, l ledger.Ledger) (persistence.Store, error) {
	if err := os.MkdirAll(opts.PersistenceDir, 0o755); err != nil {
		return nil, err
	}
	if opts.Store {
		return persistence.OpenBadgerLog(opts.PersistenceDir+"/badger", l)
	}
	return persistence.NewFileLog(opts.PersistenceDir+"/state.json", l), nil
}

func newTransport(opts *RunOptions, l ledger.Ledger, self party.Party, logger *logrus.Entry) (network.Transport, error) {
	advertise := opts.AdvertiseAddr
	bind := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	if advertise == "" {
		advertise = bind
	}

	switch opts.Transport {
	case "", "tcp":
		return network.NewTCPTransport(bind, advertise, l, self, defaultMaxPool, defaultDialTimeout, logger)
	case "webrtc":
		sig, err := wamp.NewClient(opts.WebRTCSignalURL, opts.WebRTCRealm, self.VerificationKeyHex, "", true, defaultDialTimeout, logger)
		if err != nil {
			return nil, err
		}
		return network.NewWebRTCTransport(sig, nil, l, self, defaultMaxPool, defaultDialTimeout, logger)
	case "nkn":
		seed, err := hex.DecodeString(opts.NKNSeedHex)
		if err != nil {
			return nil, fmt.Errorf("command: malformed nkn-seed-hex: %w", err)
		}
		account, err := nkn.NewAccount(seed)
		if err != nil {
			return nil, err
		}
		return network.NewNKNTransport(account, opts.NKNIdentifier, opts.NKNNumSubClients, nil, time.Duration(opts.NKNConnectTimeout)*time.Second, l, self, defaultMaxPool, defaultDialTimeout, logger)
	default:
		return nil, fmt.Errorf("command: unknown transport %q", opts.Transport)
	}
}

// simpleTxDecoder and simpleUTxODecoder wire apiserver's injected
// TxDecoder/UTxODecoder collaborators against ledger.SimpleLedger, the
// ledger implementation this command constructs by default.
func simpleTxDecoder() apiserver.TxDecoder {
	return func(raw json.RawMessage) (ledger.Tx, error) {
		var tx ledger.SimpleTx
		if err := json.Unmarshal(raw, &tx); err != nil {
			return nil, err
		}
		return tx, nil
	}
}

func simpleUTxODecoder() apiserver.UTxODecoder {
	return func(raw json.RawMessage) (ledger.UTxOSet, error) {
		var refs []struct {
			TxID  string `json:"txId"`
			Index uint32 `json:"index"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, err
		}
		u := make(ledger.SimpleUTxO, len(refs))
		for _, r := range refs {
			u[ledger.OutputRef{TxID: r.TxID, Index: r.Index}] = r.Value
		}
		return u, nil
	}
}
