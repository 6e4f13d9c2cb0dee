package partycrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	data := []byte("canonical snapshot bytes")

	sig, err := Sign(priv, data)
	require.NoError(t, err)
	require.True(t, Verify(&priv.PublicKey, data, sig))

	tampered := append([]byte{}, data...)
	tampered[0] ^= 0xff
	require.False(t, Verify(&priv.PublicKey, tampered, sig))
}

func TestSignatureEncodeDecode(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	sig, err := Sign(priv, []byte("hello"))
	require.NoError(t, err)

	enc := sig.Encode()
	dec, err := DecodeSignature(enc)
	require.NoError(t, err)
	require.Equal(t, sig.R, dec.R)
	require.Equal(t, sig.S, dec.S)
}

func TestMultiSignatureCovers(t *testing.T) {
	sigs := MultiSignature{
		"0xAAA": Signature{},
		"0xBBB": Signature{},
	}

	require.True(t, sigs.Covers([]string{"0xAAA", "0xBBB"}))
	require.False(t, sigs.Covers([]string{"0xAAA", "0xBBB", "0xCCC"}))
}

func TestPublicKeyRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	bytes := FromPublicKey(&priv.PublicKey)
	pub := ToPublicKey(bytes)
	require.Equal(t, priv.PublicKey.X, pub.X)
	require.Equal(t, priv.PublicKey.Y, pub.Y)
}
