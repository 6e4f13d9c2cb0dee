// Package command implements the hydra-node CLI: the "run" and
// "publish-scripts" subcommands spec.md §6 describes, grounded on
// cmd/babble/command/run.go's cobra/viper flag wiring.
package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hydra-head/hydra-node/party"
)

// RunOptions is the flag/viper-bound configuration of the "run" subcommand,
// exactly the {host, port, peers, apiHost, apiPort, monitoringPort,
// persistenceDir, verbosity, chainConfig, ledgerConfig, hydraScriptsTxId}
// surface spec.md §6 names, plus the transport-selection and signaling
// flags SPEC_FULL.md §5's three network backends need.
type RunOptions struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Peers is a list of "verificationKeyHex@address" pairs identifying
	// every other party in the head and how to reach them.
	Peers []string `mapstructure:"peers"`

	APIHost        string `mapstructure:"api-host"`
	APIPort        int    `mapstructure:"api-port"`
	MonitoringPort int    `mapstructure:"monitoring-port"`

	PersistenceDir string `mapstructure:"persistence-dir"`
	Verbosity      string `mapstructure:"verbosity"`

	ChainConfig       string `mapstructure:"chain-config"`
	LedgerConfig      string `mapstructure:"ledger-config"`
	HydraScriptsTxID  string `mapstructure:"hydra-scripts-tx-id"`
	SeedTxIn          string `mapstructure:"seed-tx-in"`
	ContestationSecs  int    `mapstructure:"contestation-period-seconds"`
	ChainPollSeconds  int    `mapstructure:"chain-poll-seconds"`
	APISubscriberSize int    `mapstructure:"api-subscriber-buffer"`

	// Transport selects the network backend: "tcp" (default), "webrtc", or
	// "nkn" (SPEC_FULL.md §5's three interchangeable backends).
	Transport string `mapstructure:"transport"`

	AdvertiseAddr string `mapstructure:"advertise-addr"`

	WebRTCSignalURL string `mapstructure:"webrtc-signal-url"`
	WebRTCRealm     string `mapstructure:"webrtc-realm"`

	NKNSeedHex        string `mapstructure:"nkn-seed-hex"`
	NKNIdentifier     string `mapstructure:"nkn-identifier"`
	NKNNumSubClients  int    `mapstructure:"nkn-num-subclients"`
	NKNConnectTimeout int    `mapstructure:"nkn-connect-timeout-seconds"`

	Store bool `mapstructure:"store"` // use BadgerLog instead of FileLog
}

// NewDefaultRunOptions mirrors babble's NewDefaultCliConfig: every flag has
// a usable default so "hydra-node run" with no arguments starts a
// single-node head against itself.
func NewDefaultRunOptions() *RunOptions {
	return &RunOptions{
		Host:              "0.0.0.0",
		Port:              1337,
		APIHost:           "0.0.0.0",
		APIPort:           8000,
		MonitoringPort:    8001,
		PersistenceDir:    "./hydra-data",
		Verbosity:         "info",
		ContestationSecs:  60,
		ChainPollSeconds:  3,
		APISubscriberSize: 64,
		Transport:         "tcp",
		NKNNumSubClients:  4,
		NKNConnectTimeout: 10,
		Store:             false,
	}
}

// PublishScriptsOptions binds the "publish-scripts" subcommand's flags.
type PublishScriptsOptions struct {
	ChainConfig  string `mapstructure:"chain-config"`
	ScriptsDir   string `mapstructure:"scripts-dir"`
	OutputTxFile string `mapstructure:"output-tx-file"`
}

func NewDefaultPublishScriptsOptions() *PublishScriptsOptions {
	return &PublishScriptsOptions{
		ScriptsDir: "./scripts",
	}
}

// resolvedEnv is what initEnvironment produces: this party, every other
// party in the head, and the contestation period, exactly the
// {party, otherParties, contestationPeriod} triple spec.md §6 names.
type resolvedEnv struct {
	self               party.Party
	otherParties       []party.Party
	peerAddrs          map[string]string // VerificationKeyHex -> address, keyed off Peers
	contestationPeriod time.Duration
}

// initEnvironment parses opts.Peers into parties/addresses and derives the
// core's Environment inputs, grounded on spec.md §6: "The core consumes the
// parsed RunOptions through env = initEnvironment(opts) which yields
// {party, otherParties, contestationPeriod}".
func initEnvironment(self party.Party, opts *RunOptions) (*resolvedEnv, error) {
	env := &resolvedEnv{
		self:               self,
		peerAddrs:          make(map[string]string, len(opts.Peers)),
		contestationPeriod: time.Duration(opts.ContestationSecs) * time.Second,
	}

	for _, spec := range opts.Peers {
		parts := strings.SplitN(spec, "@", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("command: malformed peer %q, want verificationKeyHex@host:port", spec)
		}
		p := party.Party{VerificationKeyHex: parts[0]}
		if p.VerificationKeyHex == self.VerificationKeyHex {
			continue
		}
		env.otherParties = append(env.otherParties, p)
		env.peerAddrs[p.VerificationKeyHex] = parts[1]
	}

	return env, nil
}

// parseLogLevel mirrors babble's config.LogLevel helper.
func parseLogLevel(level string) logrus.Level {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}
