// Package wire provides the canonical binary encoding used for two distinct
// purposes across the node: (1) durable persistence of HeadState (§4.2), and
// (2) peer network messages (network.EncodeMessage). Both use the same
// github.com/ugorji/go/codec CBOR handle, grounded on babble's use of
// github.com/ugorji/go/codec for wire-format encoding of hashgraph Events.
// The client API's "cbor-hex" transaction option (§6) does not go through
// this package: apiserver hex-encodes Ledger.TxBytes instead.
package wire

import (
	"bytes"
	"encoding/hex"

	"github.com/ugorji/go/codec"
)

// cborHandle is shared and read-only after init, as codec.Handle values are
// safe for concurrent Encoder/Decoder creation once configured.
var cborHandle = newCborHandle()

func newCborHandle() *codec.CborHandle {
	h := &codec.CborHandle{}
	// Canonical encoding: map keys are sorted in Go's natural order of their
	// Go field name, and struct fields are emitted by tag rather than
	// position, so two processes encoding the same Go value always produce
	// byte-identical output -- required by "load ∘ save = identity" (§4.2)
	// (snapshot signing bytes come from CanonicalSnapshotBytes instead).
	h.Canonical = true
	h.StructToArray = false
	return h
}

// Marshal encodes v to canonical CBOR bytes.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, cborHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes canonical CBOR bytes into v.
func Unmarshal(data []byte, v interface{}) error {
	dec := codec.NewDecoder(bytes.NewReader(data), cborHandle)
	return dec.Decode(v)
}

// HexEncode renders v as canonical CBOR, then lowercase hex.
func HexEncode(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HexDecode reverses HexEncode.
func HexDecode(s string, v interface{}) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	return Unmarshal(b, v)
}
