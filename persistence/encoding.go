package persistence

import (
	"fmt"
	"time"

	"github.com/hydra-head/hydra-node/chainstate"
	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
	"github.com/hydra-head/hydra-node/party"
	"github.com/hydra-head/hydra-node/partycrypto"
	"github.com/hydra-head/hydra-node/snapshot"
	"github.com/hydra-head/hydra-node/wire"
)

func timeDuration(nanos int64) time.Duration { return time.Duration(nanos) }

func unixNanoTime(nanos int64) time.Time { return time.Unix(0, nanos).UTC() }

// wireState is the on-disk shape of a headstate.HeadState. HeadState's
// fields are flattened into one struct with a Kind discriminator rather than
// encoded through Go's interface machinery, because the opaque ledger.Tx /
// ledger.UTxOSet values it carries can only be (de)serialized by a
// ledger.Ledger -- there is no way to hand a generic codec an interface{}
// value and expect it back in the right concrete type without the caller
// naming that type somewhere. Keeping one flat DTO, explicit and
// non-magical, is exactly the spirit of spec.md §9's re-architecture note
// ("Explicit, no magic").
type wireState struct {
	Kind string

	ChainSlot uint64
	ChainHash string
	ChainUTxO []byte

	HeadID                  string
	PartyKeys               []string
	ContestationPeriodNanos int64

	// Initial
	CommittedKeys []string
	CommittedUTxO [][]byte
	SeedTxIn      string

	// Open
	InitialUTxO             []byte
	LocalTxs                [][]byte
	SeenTxs                 [][]byte
	SeenUTxO                []byte
	ConfirmedSnapshotKind   string // "initial" | "confirmed"
	ConfirmedSnapshotNumber uint64
	ConfirmedUTxO           []byte
	ConfirmedTxs            [][]byte
	ConfirmedSigKeys        []string
	ConfirmedSigVals        []string
	SeenSnapshotPresent     bool
	SeenSnapshotNumber      uint64
	SeenSnapshotUTxO        []byte
	SeenSnapshotTxs         [][]byte
	SeenSigKeys             []string
	SeenSigVals             []string
	AllTxs                  [][]byte

	// Closed
	ContestationDeadlineUnixNano int64
	ReadyToFanout                bool

	// Final
	FinalUTxO []byte
}

func encodeParams(p party.Parameters) ([]string, int64) {
	return p.Keys(), int64(p.ContestationPeriod)
}

func decodeParams(keys []string, nanos int64) party.Parameters {
	parties := make([]party.Party, len(keys))
	for i, k := range keys {
		parties[i] = party.Party{VerificationKeyHex: k}
	}
	return party.NewParameters(parties, timeDuration(nanos))
}

func encodeSigs(sigs partycrypto.MultiSignature) ([]string, []string) {
	keys := make([]string, 0, len(sigs))
	vals := make([]string, 0, len(sigs))
	for k, v := range sigs {
		keys = append(keys, k)
		vals = append(vals, v.Encode())
	}
	return keys, vals
}

func decodeSigs(keys, vals []string) (partycrypto.MultiSignature, error) {
	sigs := make(partycrypto.MultiSignature, len(keys))
	for i, k := range keys {
		sig, err := partycrypto.DecodeSignature(vals[i])
		if err != nil {
			return nil, err
		}
		sigs[k] = sig
	}
	return sigs, nil
}

func encodeTxs(l ledger.Ledger, txs []ledger.Tx) ([][]byte, error) {
	out := make([][]byte, len(txs))
	for i, tx := range txs {
		b, err := l.MarshalTx(tx)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func decodeTxs(l ledger.Ledger, blobs [][]byte) ([]ledger.Tx, error) {
	out := make([]ledger.Tx, len(blobs))
	for i, b := range blobs {
		tx, err := l.UnmarshalTx(b)
		if err != nil {
			return nil, err
		}
		out[i] = tx
	}
	return out, nil
}

func encodeUTxO(l ledger.Ledger, u ledger.UTxOSet) ([]byte, error) {
	if u == nil {
		return nil, nil
	}
	return l.MarshalUTxO(u)
}

func decodeUTxO(l ledger.Ledger, data []byte) (ledger.UTxOSet, error) {
	if len(data) == 0 {
		return l.Empty(), nil
	}
	return l.UnmarshalUTxO(data)
}

// encodeHeadState converts a HeadState to its wire DTO.
func encodeHeadState(l ledger.Ledger, s headstate.HeadState) (*wireState, error) {
	cs := s.ChainState()
	chainUTxO, err := encodeUTxO(l, cs.ScriptUTxO)
	if err != nil {
		return nil, err
	}

	w := &wireState{
		ChainSlot: cs.Point.Slot,
		ChainHash: cs.Point.Hash,
		ChainUTxO: chainUTxO,
	}

	switch st := s.(type) {
	case headstate.Idle:
		w.Kind = "idle"

	case headstate.Initial:
		w.Kind = "initial"
		w.HeadID = string(st.HeadID)
		w.PartyKeys, w.ContestationPeriodNanos = encodeParams(st.Params)
		w.SeedTxIn = st.SeedTxIn
		for k, u := range st.Committed {
			b, err := encodeUTxO(l, u)
			if err != nil {
				return nil, err
			}
			w.CommittedKeys = append(w.CommittedKeys, k)
			w.CommittedUTxO = append(w.CommittedUTxO, b)
		}

	case headstate.Open:
		w.Kind = "open"
		w.HeadID = string(st.HeadID)
		w.PartyKeys, w.ContestationPeriodNanos = encodeParams(st.Params)

		c := st.Coordinated
		if w.InitialUTxO, err = encodeUTxO(l, c.InitialUTxO); err != nil {
			return nil, err
		}
		if w.LocalTxs, err = encodeTxs(l, c.LocalTxs); err != nil {
			return nil, err
		}
		if w.SeenTxs, err = encodeTxs(l, c.SeenTxs); err != nil {
			return nil, err
		}
		if w.SeenUTxO, err = encodeUTxO(l, c.SeenUTxO); err != nil {
			return nil, err
		}
		if w.AllTxs, err = encodeTxs(l, c.AllTxs); err != nil {
			return nil, err
		}

		switch csnap := c.ConfirmedSnapshot.(type) {
		case snapshot.Initial:
			w.ConfirmedSnapshotKind = "initial"
			if w.ConfirmedUTxO, err = encodeUTxO(l, csnap.UTxO); err != nil {
				return nil, err
			}
		case snapshot.Confirmed:
			w.ConfirmedSnapshotKind = "confirmed"
			w.ConfirmedSnapshotNumber = csnap.Snapshot.Number
			if w.ConfirmedUTxO, err = encodeUTxO(l, csnap.Snapshot.UTxO); err != nil {
				return nil, err
			}
			if w.ConfirmedTxs, err = encodeTxs(l, csnap.Snapshot.ConfirmedTxs); err != nil {
				return nil, err
			}
			w.ConfirmedSigKeys, w.ConfirmedSigVals = encodeSigs(csnap.MultiSig)
		}

		if c.SeenSnapshot != nil {
			w.SeenSnapshotPresent = true
			w.SeenSnapshotNumber = c.SeenSnapshot.Candidate.Number
			if w.SeenSnapshotUTxO, err = encodeUTxO(l, c.SeenSnapshot.Candidate.UTxO); err != nil {
				return nil, err
			}
			if w.SeenSnapshotTxs, err = encodeTxs(l, c.SeenSnapshot.Candidate.ConfirmedTxs); err != nil {
				return nil, err
			}
			w.SeenSigKeys, w.SeenSigVals = encodeSigs(c.SeenSnapshot.Sigs)
		}

	case headstate.Closed:
		w.Kind = "closed"
		w.HeadID = string(st.HeadID)
		w.PartyKeys, w.ContestationPeriodNanos = encodeParams(st.Params)
		w.ReadyToFanout = st.ReadyToFanout
		w.ContestationDeadlineUnixNano = st.ContestationDeadline.UnixNano()

		switch csnap := st.ConfirmedSnapshot.(type) {
		case snapshot.Initial:
			w.ConfirmedSnapshotKind = "initial"
			if w.ConfirmedUTxO, err = encodeUTxO(l, csnap.UTxO); err != nil {
				return nil, err
			}
		case snapshot.Confirmed:
			w.ConfirmedSnapshotKind = "confirmed"
			w.ConfirmedSnapshotNumber = csnap.Snapshot.Number
			if w.ConfirmedUTxO, err = encodeUTxO(l, csnap.Snapshot.UTxO); err != nil {
				return nil, err
			}
			if w.ConfirmedTxs, err = encodeTxs(l, csnap.Snapshot.ConfirmedTxs); err != nil {
				return nil, err
			}
			w.ConfirmedSigKeys, w.ConfirmedSigVals = encodeSigs(csnap.MultiSig)
		}

	case headstate.Final:
		w.Kind = "final"
		w.HeadID = string(st.HeadID)
		if w.FinalUTxO, err = encodeUTxO(l, st.FinalUTxO); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("persistence: unknown HeadState type %T", s)
	}

	return w, nil
}

// decodeHeadState reverses encodeHeadState.
func decodeHeadState(l ledger.Ledger, w *wireState) (headstate.HeadState, error) {
	chainUTxO, err := decodeUTxO(l, w.ChainUTxO)
	if err != nil {
		return nil, err
	}
	cs := chainstateOf(w, chainUTxO)

	switch w.Kind {
	case "idle":
		return headstate.Idle{Chain: cs}, nil

	case "initial":
		committed := make(map[string]ledger.UTxOSet, len(w.CommittedKeys))
		for i, k := range w.CommittedKeys {
			u, err := decodeUTxO(l, w.CommittedUTxO[i])
			if err != nil {
				return nil, err
			}
			committed[k] = u
		}
		return headstate.Initial{
			HeadID:    party.HeadId(w.HeadID),
			Params:    decodeParams(w.PartyKeys, w.ContestationPeriodNanos),
			Committed: committed,
			SeedTxIn:  w.SeedTxIn,
			Chain:     cs,
		}, nil

	case "open":
		initialUTxO, err := decodeUTxO(l, w.InitialUTxO)
		if err != nil {
			return nil, err
		}
		localTxs, err := decodeTxs(l, w.LocalTxs)
		if err != nil {
			return nil, err
		}
		seenTxs, err := decodeTxs(l, w.SeenTxs)
		if err != nil {
			return nil, err
		}
		seenUTxO, err := decodeUTxO(l, w.SeenUTxO)
		if err != nil {
			return nil, err
		}
		allTxs, err := decodeTxs(l, w.AllTxs)
		if err != nil {
			return nil, err
		}

		confirmed, err := decodeConfirmedSnapshot(l, w)
		if err != nil {
			return nil, err
		}

		var seen *headstate.SeenSnapshot
		if w.SeenSnapshotPresent {
			utxo, err := decodeUTxO(l, w.SeenSnapshotUTxO)
			if err != nil {
				return nil, err
			}
			txs, err := decodeTxs(l, w.SeenSnapshotTxs)
			if err != nil {
				return nil, err
			}
			sigs, err := decodeSigs(w.SeenSigKeys, w.SeenSigVals)
			if err != nil {
				return nil, err
			}
			seen = &headstate.SeenSnapshot{
				Candidate: snapshot.Snapshot{Number: w.SeenSnapshotNumber, UTxO: utxo, ConfirmedTxs: txs},
				Sigs:      sigs,
			}
		}

		return headstate.Open{
			HeadID: party.HeadId(w.HeadID),
			Params: decodeParams(w.PartyKeys, w.ContestationPeriodNanos),
			Coordinated: headstate.CoordinatedState{
				InitialUTxO:       initialUTxO,
				LocalTxs:          localTxs,
				SeenTxs:           seenTxs,
				SeenUTxO:          seenUTxO,
				ConfirmedSnapshot: confirmed,
				SeenSnapshot:      seen,
				AllTxs:            allTxs,
			},
			Chain: cs,
		}, nil

	case "closed":
		confirmed, err := decodeConfirmedSnapshot(l, w)
		if err != nil {
			return nil, err
		}
		return headstate.Closed{
			HeadID:               party.HeadId(w.HeadID),
			Params:               decodeParams(w.PartyKeys, w.ContestationPeriodNanos),
			ConfirmedSnapshot:    confirmed,
			ContestationDeadline: unixNanoTime(w.ContestationDeadlineUnixNano),
			ReadyToFanout:        w.ReadyToFanout,
			Chain:                cs,
		}, nil

	case "final":
		finalUTxO, err := decodeUTxO(l, w.FinalUTxO)
		if err != nil {
			return nil, err
		}
		return headstate.Final{
			HeadID:    party.HeadId(w.HeadID),
			FinalUTxO: finalUTxO,
			Chain:     cs,
		}, nil
	}

	return nil, fmt.Errorf("persistence: unknown wire kind %q", w.Kind)
}

func decodeConfirmedSnapshot(l ledger.Ledger, w *wireState) (snapshot.ConfirmedSnapshot, error) {
	utxo, err := decodeUTxO(l, w.ConfirmedUTxO)
	if err != nil {
		return nil, err
	}
	switch w.ConfirmedSnapshotKind {
	case "initial":
		return snapshot.Initial{UTxO: utxo}, nil
	case "confirmed":
		txs, err := decodeTxs(l, w.ConfirmedTxs)
		if err != nil {
			return nil, err
		}
		sigs, err := decodeSigs(w.ConfirmedSigKeys, w.ConfirmedSigVals)
		if err != nil {
			return nil, err
		}
		return snapshot.Confirmed{
			Snapshot: snapshot.Snapshot{Number: w.ConfirmedSnapshotNumber, UTxO: utxo, ConfirmedTxs: txs},
			MultiSig: sigs,
		}, nil
	default:
		return nil, nil
	}
}

func chainstateOf(w *wireState, utxo ledger.UTxOSet) chainstate.State {
	return chainstate.State{
		Point:      chainstate.Point{Slot: w.ChainSlot, Hash: w.ChainHash},
		ScriptUTxO: utxo,
	}
}

// Encode/Decode expose the CBOR framing used by all three Store
// implementations.
func Encode(l ledger.Ledger, s headstate.HeadState) ([]byte, error) {
	w, err := encodeHeadState(l, s)
	if err != nil {
		return nil, err
	}
	return wire.Marshal(w)
}

func Decode(l ledger.Ledger, data []byte) (headstate.HeadState, error) {
	var w wireState
	if err := wire.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return decodeHeadState(l, &w)
}
