// Package persistence implements the durable HeadState log (spec.md §4.2,
// C2): load-on-start, write-on-change, with "load ∘ save = identity"
// (testable property 2). Three Store implementations are provided,
// grounded on babble's hashgraph.Store interface being satisfied by both
// InmemStore and BoltStore/the Badger-backed store:
//
//   - MemoryLog, for tests.
//   - BadgerLog, the production store (github.com/dgraph-io/badger),
//     grounded on hashgraph/bolt_store.go and babble.Babble.initStore.
//   - FileLog, a dependency-free write-temp-and-rename store, the CLI's
//     default unless --store is set, grounded on dedis-tlc's fs.WriteFileOnce
//     pattern (enrichment from the wider example pack).
package persistence

import "github.com/hydra-head/hydra-node/headstate"

// Store is the Persistence Log interface the node runtime depends on.
type Store interface {
	// Load returns the last persisted HeadState, or ok=false if nothing has
	// ever been saved.
	Load() (state headstate.HeadState, ok bool, err error)

	// Save atomically replaces the persisted HeadState.
	Save(state headstate.HeadState) error

	// Close releases any resources (file handles, DB handles) held by the
	// store.
	Close() error
}
