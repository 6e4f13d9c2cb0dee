// Package party defines a head protocol Party (a verification-key identity)
// and HeadParameters (the fixed, ordered set of parties plus contestation
// period for one head instance), grounded on babble's peers package.
package party

import "sort"

// Party is a verification-key identity participating in a head. The key is
// carried as its "0x"-prefixed hex encoding (see partycrypto.PublicKeyHex) so
// Party values are comparable and usable as map keys without re-deriving the
// encoding at every call site.
type Party struct {
	VerificationKeyHex string
}

// ByVerificationKey implements sort.Interface, giving the canonical, node-
// independent ordering of parties used for signature canonicalization and
// leader rotation (spec.md §3 "Ordered deterministically").
type ByVerificationKey []Party

func (a ByVerificationKey) Len() int      { return len(a) }
func (a ByVerificationKey) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a ByVerificationKey) Less(i, j int) bool {
	return a[i].VerificationKeyHex < a[j].VerificationKeyHex
}

// Sorted returns a new, canonically-ordered copy of parties.
func Sorted(parties []Party) []Party {
	out := make([]Party, len(parties))
	copy(out, parties)
	sort.Sort(ByVerificationKey(out))
	return out
}
