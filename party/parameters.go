package party

import (
	"fmt"
	"time"
)

// HeadId is an opaque identifier minted by the chain when a head is
// initialized. It uniquely identifies a head instance.
type HeadId string

// Parameters is the immutable parameter set of a head: its ordered party
// set and contestation period (spec.md §3 HeadParameters). Parties is always
// stored in canonical (sorted) order so Leader and signature canonicalization
// agree across every party's local copy.
type Parameters struct {
	Parties            []Party
	ContestationPeriod time.Duration
}

// NewParameters canonically orders parties before storing them.
func NewParameters(parties []Party, contestationPeriod time.Duration) Parameters {
	return Parameters{
		Parties:            Sorted(parties),
		ContestationPeriod: contestationPeriod,
	}
}

// Contains reports whether p is a member of this parameter set.
func (hp Parameters) Contains(p Party) bool {
	for _, m := range hp.Parties {
		if m.VerificationKeyHex == p.VerificationKeyHex {
			return true
		}
	}
	return false
}

// Leader returns the deterministic snapshot leader for snapshot number n:
// parties[n mod |parties|] under the fixed, canonical ordering (spec.md
// §4.3.2).
func (hp Parameters) Leader(n uint64) (Party, error) {
	if len(hp.Parties) == 0 {
		return Party{}, fmt.Errorf("empty party set has no leader")
	}
	idx := int(n % uint64(len(hp.Parties)))
	return hp.Parties[idx], nil
}

// Keys returns the canonically-ordered verification-key hexes, the shape
// most wire/canonical-encoding code wants.
func (hp Parameters) Keys() []string {
	keys := make([]string, len(hp.Parties))
	for i, p := range hp.Parties {
		keys[i] = p.VerificationKeyHex
	}
	return keys
}
