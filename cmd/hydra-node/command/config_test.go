package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hydra-head/hydra-node/party"
)

func TestInitEnvironmentParsesPeers(t *testing.T) {
	self := party.Party{VerificationKeyHex: "0xaa"}
	opts := &RunOptions{
		Peers:            []string{"0xaa@127.0.0.1:1337", "0xbb@127.0.0.1:1338", "0xcc@127.0.0.1:1339"},
		ContestationSecs: 60,
	}

	env, err := initEnvironment(self, opts)
	require.NoError(t, err)

	require.Len(t, env.otherParties, 2)
	require.Equal(t, "127.0.0.1:1338", env.peerAddrs["0xbb"])
	require.Equal(t, "127.0.0.1:1339", env.peerAddrs["0xcc"])
	require.NotContains(t, env.peerAddrs, "0xaa")
	require.Equal(t, 60*1e9, float64(env.contestationPeriod))
}

func TestInitEnvironmentRejectsMalformedPeer(t *testing.T) {
	self := party.Party{VerificationKeyHex: "0xaa"}
	opts := &RunOptions{Peers: []string{"not-a-valid-peer-spec"}}

	_, err := initEnvironment(self, opts)
	require.Error(t, err)
}

func TestInitEnvironmentEmptyPeers(t *testing.T) {
	self := party.Party{VerificationKeyHex: "0xaa"}
	opts := &RunOptions{}

	env, err := initEnvironment(self, opts)
	require.NoError(t, err)
	require.Empty(t, env.otherParties)
}

func TestParseLogLevelFallsBackToInfo(t *testing.T) {
	require.Equal(t, "info", parseLogLevel("not-a-level").String())
	require.Equal(t, "debug", parseLogLevel("debug").String())
}
