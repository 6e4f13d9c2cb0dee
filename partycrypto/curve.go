// Package partycrypto wraps the cryptographic primitives a head protocol
// party needs: verification-key identity, canonical hashing, ECDSA
// signing/verification, and aggregation of per-party signatures into a
// MultiSignature over a snapshot.
//
// This package is the concrete instance of the spec's "Crypto" collaborator
// interface (assumed available, cryptographic primitives out of core scope):
// headlogic never touches an ecdsa.PrivateKey or a curve directly, it only
// calls partycrypto.Sign / partycrypto.Verify.
package partycrypto

import (
	"crypto/elliptic"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
)

// Head parties sign over secp256k1, the same curve bitcoin and ethereum use,
// so the same wire-format signatures used on the settlement chain can be
// reused for off-chain snapshot signatures.
var (
	secp256k1N, _  = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
	secp256k1HalfN = new(big.Int).Div(secp256k1N, big.NewInt(2))
)

// Curve returns the elliptic.Curve used for party signing keys.
func Curve() elliptic.Curve {
	return btcec.S256()
}
