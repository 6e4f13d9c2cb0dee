package wire

import (
	"encoding/binary"
)

// CanonicalSnapshotBytes builds the stable, endian-fixed serialization that
// every party signs and verifies over (spec.md §4.3.2):
//
//	headId ‖ number(u64 big-endian) ‖ hash(utxo) ‖ hash(confirmedTxs)
//
// utxoHash and txsHash must already be the fixed 256-bit digest the protocol
// agrees on (partycrypto.SHA256); this function only does the concatenation,
// so callers own the choice of hash function exactly once (in snapshot.Bytes
// computation), keeping this function a pure, dependency-free formatter.
func CanonicalSnapshotBytes(headID string, number uint64, utxoHash, txsHash []byte) []byte {
	out := make([]byte, 0, len(headID)+8+len(utxoHash)+len(txsHash))
	out = append(out, []byte(headID)...)

	var numBuf [8]byte
	binary.BigEndian.PutUint64(numBuf[:], number)
	out = append(out, numBuf[:]...)

	out = append(out, utxoHash...)
	out = append(out, txsHash...)

	return out
}
