// Package node is the head protocol's C5 Node Runtime: the impure shell
// that owns the single in-memory HeadState, repeatedly dequeues one Input,
// calls headlogic.Step, persists the result, and dispatches its Effects —
// grounded on node/node.go's Run loop and node/config.go's Config.
package node

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hydra-head/hydra-node/party"
)

// Config holds the node runtime's tunables, grounded on node/config.go's
// Config (HeartbeatTimeout/TCPTimeout/JoinTimeout/CacheSize/SyncLimit),
// generalized from babble's gossip tuning to the head protocol's own
// concerns: checkpoint retention, contestation-extension policy, and the
// TTL new ReqTx messages are seeded with.
type Config struct {
	// Self is this node's own party identity.
	Self party.Party

	// HeadParameters is the configured party set and contestation period
	// this node will ask the chain to open, the params half of
	// InitTx(params, seed) (headlogic.Environment.HeadParameters).
	HeadParameters party.Parameters

	// SeedTxIn anchors the head this node will try to initialize, the
	// seed half of InitTx(params, seed)
	// (headlogic.Environment.SeedTxIn).
	SeedTxIn string

	// CheckpointLimit bounds the rollback ring's size (oldest entries are
	// dropped once exceeded), mirroring node/config.go's CacheSize bounding
	// babble's in-memory hashgraph cache.
	CheckpointLimit int

	// TTLInitial seeds headlogic.NetworkInput.TTL for every message the
	// runtime receives from its Transport, bounding how many times a
	// not-yet-applicable ReqTx is requeued.
	TTLInitial uint32

	// ContestationExtension is the deadline extension applied per observed
	// Contest (headlogic.Environment.ContestationExtension).
	ContestationExtension time.Duration

	// DispatchWorkers bounds how many effect-dispatch goroutines may run
	// concurrently, grounded on node/state/state.go's WGLIMIT pattern.
	DispatchWorkers int

	// TickInterval is how often the runtime synthesizes a headlogic.Tick
	// from the wall clock to check contestation deadlines.
	TickInterval time.Duration

	Logger *logrus.Entry
}

// DefaultConfig returns conservative defaults, mirroring node/config.go's
// DefaultConfig.
func DefaultConfig(self party.Party) *Config {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	return &Config{
		Self:                  self,
		CheckpointLimit:       256,
		TTLInitial:            5,
		ContestationExtension: 30 * time.Second,
		DispatchWorkers:       20,
		TickInterval:          time.Second,
		Logger:                logrus.NewEntry(logger),
	}
}
