package ledger

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"strings"
)

// SimpleTx is a minimal transaction shape: it spends a set of inputs and
// creates a set of new outputs, each carrying an opaque value string. It
// exists so the head protocol engine can be exercised end-to-end without a
// real settlement-chain ledger, the same role babble's dummy application
// plays for hashgraph: "used for testing and as an example for building
// applications" (dummy/state/state.go).
type SimpleTx struct {
	ID      string
	Inputs  []OutputRef
	Outputs []string // new outputs, referenced as {ID, index}
	Legacy  bool     // marks this tx's outputs as legacy (non-native) for tests
}

// SimpleUTxO is the SimpleLedger's UTxOSet implementation: a plain map from
// OutputRef to an opaque value string.
type SimpleUTxO map[OutputRef]string

// Equal implements UTxOSet.
func (u SimpleUTxO) Equal(other UTxOSet) bool {
	o, ok := other.(SimpleUTxO)
	if !ok || len(o) != len(u) {
		return false
	}
	for ref, val := range u {
		if o[ref] != val {
			return false
		}
	}
	return true
}

// Bytes implements UTxOSet with a stable, sorted-key serialization.
func (u SimpleUTxO) Bytes() []byte {
	refs := u.Refs()
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].TxID != refs[j].TxID {
			return refs[i].TxID < refs[j].TxID
		}
		return refs[i].Index < refs[j].Index
	})

	var b strings.Builder
	for _, r := range refs {
		fmt.Fprintf(&b, "%s#%d=%s;", r.TxID, r.Index, u[r])
	}
	return []byte(b.String())
}

// Refs implements UTxOSet.
func (u SimpleUTxO) Refs() []OutputRef {
	refs := make([]OutputRef, 0, len(u))
	for r := range u {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].TxID != refs[j].TxID {
			return refs[i].TxID < refs[j].TxID
		}
		return refs[i].Index < refs[j].Index
	})
	return refs
}

func (u SimpleUTxO) clone() SimpleUTxO {
	out := make(SimpleUTxO, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

// SimpleLedger is a trivial Ledger implementation over SimpleTx/SimpleUTxO.
type SimpleLedger struct {
	legacyTxIDs map[string]bool
}

// NewSimpleLedger returns a ready-to-use SimpleLedger.
func NewSimpleLedger() *SimpleLedger {
	return &SimpleLedger{legacyTxIDs: make(map[string]bool)}
}

// Empty implements Ledger.
func (l *SimpleLedger) Empty() UTxOSet { return SimpleUTxO{} }

// Union implements Ledger.
func (l *SimpleLedger) Union(a, b UTxOSet) UTxOSet {
	out := a.(SimpleUTxO).clone()
	for k, v := range b.(SimpleUTxO) {
		out[k] = v
	}
	return out
}

// Applicable implements Ledger: every input must be present in utxo.
func (l *SimpleLedger) Applicable(utxo UTxOSet, tx Tx) bool {
	t := tx.(SimpleTx)
	u := utxo.(SimpleUTxO)
	for _, in := range t.Inputs {
		if _, ok := u[in]; !ok {
			return false
		}
	}
	return true
}

// Apply implements Ledger: consumes inputs, creates outputs keyed by the
// tx's own ID.
func (l *SimpleLedger) Apply(utxo UTxOSet, tx Tx) (UTxOSet, error) {
	t := tx.(SimpleTx)
	u := utxo.(SimpleUTxO).clone()

	for _, in := range t.Inputs {
		if _, ok := u[in]; !ok {
			return nil, ValidationError{Reason: fmt.Sprintf("missing input %s#%d", in.TxID, in.Index)}
		}
	}
	for _, in := range t.Inputs {
		delete(u, in)
	}
	for i, out := range t.Outputs {
		u[OutputRef{TxID: t.ID, Index: uint32(i)}] = out
	}

	if t.Legacy {
		l.legacyTxIDs[t.ID] = true
	}

	return u, nil
}

// TxBytes implements Ledger with a stable textual encoding.
func (l *SimpleLedger) TxBytes(tx Tx) []byte {
	t := tx.(SimpleTx)
	var b strings.Builder
	fmt.Fprintf(&b, "id=%s;in=", t.ID)
	for _, in := range t.Inputs {
		fmt.Fprintf(&b, "%s#%d,", in.TxID, in.Index)
	}
	b.WriteString(";out=")
	for _, out := range t.Outputs {
		fmt.Fprintf(&b, "%s,", out)
	}
	return []byte(b.String())
}

// IsLegacyOutput implements Ledger: an output is legacy if the tx that
// created it was marked Legacy.
func (l *SimpleLedger) IsLegacyOutput(ref OutputRef) bool {
	return l.legacyTxIDs[ref.TxID]
}

// MarshalTx implements Ledger with gob, since SimpleTx is a plain struct
// with no opaque fields of its own.
func (l *SimpleLedger) MarshalTx(tx Tx) ([]byte, error) {
	var buf bytes.Buffer
	t := tx.(SimpleTx)
	if err := gob.NewEncoder(&buf).Encode(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalTx implements Ledger.
func (l *SimpleLedger) UnmarshalTx(data []byte) (Tx, error) {
	var t SimpleTx
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&t); err != nil {
		return nil, err
	}
	if t.Legacy {
		l.legacyTxIDs[t.ID] = true
	}
	return t, nil
}

// MarshalUTxO implements Ledger with gob.
func (l *SimpleLedger) MarshalUTxO(u UTxOSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(u.(SimpleUTxO)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalUTxO implements Ledger.
func (l *SimpleLedger) UnmarshalUTxO(data []byte) (UTxOSet, error) {
	var u SimpleUTxO
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&u); err != nil {
		return nil, err
	}
	return u, nil
}
