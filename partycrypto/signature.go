package partycrypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

// Signature is a single party's ECDSA signature over a message digest.
type Signature struct {
	R, S *big.Int
}

// SHA256 is the fixed digest function used for canonical snapshot hashing
// (spec.md §4.3.2: "the exact hash function must be fixed ... and part of the
// protocol constant set").
func SHA256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Sign signs the SHA256 digest of data with priv.
func Sign(priv *ecdsa.PrivateKey, data []byte) (Signature, error) {
	digest := SHA256(data)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return Signature{}, err
	}
	return Signature{R: r, S: s}, nil
}

// Verify checks sig against the SHA256 digest of data under pub.
func Verify(pub *ecdsa.PublicKey, data []byte, sig Signature) bool {
	digest := SHA256(data)
	return ecdsa.Verify(pub, digest, sig.R, sig.S)
}

// Encode returns a stable string representation of a signature, suitable for
// JSON transport and for use as a map value in a MultiSignature.
func (s Signature) Encode() string {
	return fmt.Sprintf("%s|%s", s.R.Text(36), s.S.Text(36))
}

// DecodeSignature parses a string produced by Signature.Encode.
func DecodeSignature(enc string) (Signature, error) {
	parts := strings.Split(enc, "|")
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("wrong number of signature parts: got %d, want 2", len(parts))
	}
	r, ok := new(big.Int).SetString(parts[0], 36)
	if !ok {
		return Signature{}, fmt.Errorf("invalid signature r component")
	}
	s, ok := new(big.Int).SetString(parts[1], 36)
	if !ok {
		return Signature{}, fmt.Errorf("invalid signature s component")
	}
	return Signature{R: r, S: s}, nil
}

// MultiSignature aggregates one Signature per Party, keyed by the Party's
// verification-key hex. It is not a cryptographic threshold signature scheme
// (the spec's invariant 2 requires every party, not a threshold), just a
// canonical, ordered bundle of individual ECDSA signatures.
type MultiSignature map[string]Signature

// Covers reports whether sigs contains exactly one signature from every
// member of parties (spec.md invariant 2 / testable property 7, unanimity).
func (sigs MultiSignature) Covers(parties []string) bool {
	if len(sigs) < len(parties) {
		return false
	}
	for _, p := range parties {
		if _, ok := sigs[p]; !ok {
			return false
		}
	}
	return true
}
