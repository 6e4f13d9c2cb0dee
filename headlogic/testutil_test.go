package headlogic

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/partycrypto"
	"github.com/hydra-head/hydra-node/snapshot"
)

// testParty bundles a Party identity with the private key behind it, so
// tests can build an Environment for any of several simulated parties.
type testParty struct {
	party.Party
	priv *ecdsa.PrivateKey
}

func newTestParty(t *testing.T) testParty {
	t.Helper()
	priv, err := partycrypto.GenerateKey()
	require.NoError(t, err)
	return testParty{
		Party: party.Party{VerificationKeyHex: partycrypto.PublicKeyHex(&priv.PublicKey)},
		priv:  priv,
	}
}

// testWorld sets up N parties with a shared verification-key directory
// (so every party's Environment.Verify can check every other party's
// signatures) and returns their canonically-ordered Parameters.
type testWorld struct {
	ledger    *ledger.SimpleLedger
	parties   []testParty
	verifiers map[string]*ecdsa.PublicKey
}

func newTestWorld(t *testing.T, n int) *testWorld {
	t.Helper()
	w := &testWorld{
		ledger:    ledger.NewSimpleLedger(),
		verifiers: map[string]*ecdsa.PublicKey{},
	}
	for i := 0; i < n; i++ {
		p := newTestParty(t)
		w.parties = append(w.parties, p)
		w.verifiers[p.VerificationKeyHex] = &p.priv.PublicKey
	}
	return w
}

func (w *testWorld) params(contestation time.Duration) party.Parameters {
	parties := make([]party.Party, len(w.parties))
	for i, p := range w.parties {
		parties[i] = p.Party
	}
	return party.NewParameters(parties, contestation)
}

// env builds the Environment for party index i.
func (w *testWorld) env(i int) Environment {
	self := w.parties[i]
	return Environment{
		Self: self.Party,
		Sign: func(data []byte) (partycrypto.Signature, error) {
			return partycrypto.Sign(self.priv, data)
		},
		Verify: func(verificationKeyHex string, data []byte, sig partycrypto.Signature) bool {
			pub, ok := w.verifiers[verificationKeyHex]
			if !ok {
				return false
			}
			return partycrypto.Verify(pub, data, sig)
		},
		Ledger:                w.ledger,
		HeadParameters:        w.params(30 * time.Second),
		SeedTxIn:              "seed#0",
		TTLInitial:            3,
		ContestationExtension: 5 * time.Second,
	}
}

// chainAt builds a chainstate.State at the given slot/hash, the shape every
// ChainEvent in these tests carries as its NewChain payload.
func chainAt(slot uint64, hash string) chainstate.State {
	return chainstate.State{Point: chainstate.Point{Slot: slot, Hash: hash}}
}

func snapshotInitial(u ledger.UTxOSet) snapshot.ConfirmedSnapshot {
	return snapshot.Initial{UTxO: u}
}
