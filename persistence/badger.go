package persistence

import (
	"github.com/dgraph-io/badger"

	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
)

// stateKey is the single key this store ever writes: the node keeps exactly
// one HeadState, not a log of historical ones, so there is no key scheme to
// design beyond babble's participant/round/topo prefix convention
// (hashgraph/badger_store.go) -- one key is enough.
var stateKey = []byte("hydra/state")

// BadgerLog is the production Store, an embedded KV database requiring no
// external service, grounded on babble.Babble.initStore's badger.Open /
// badger.DefaultOptions wiring and hashgraph/badger_store.go's
// View/NewTransaction access pattern.
type BadgerLog struct {
	db     *badger.DB
	ledger ledger.Ledger
}

// OpenBadgerLog opens (creating if absent) a Badger database at path.
func OpenBadgerLog(path string, l ledger.Ledger) (*BadgerLog, error) {
	opts := badger.DefaultOptions(path)
	opts.Dir = path
	opts.ValueDir = path
	opts.SyncWrites = true // durability over throughput: one write per state change

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerLog{db: db, ledger: l}, nil
}

// Load implements Store.
func (b *BadgerLog) Load() (headstate.HeadState, bool, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if isKeyNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	s, err := Decode(b.ledger, data)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Save implements Store.
func (b *BadgerLog) Save(s headstate.HeadState) error {
	data, err := Encode(b.ledger, s)
	if err != nil {
		return err
	}

	tx := b.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(stateKey, data); err != nil {
		return err
	}
	return tx.Commit()
}

// Close implements Store.
func (b *BadgerLog) Close() error {
	return b.db.Close()
}

func isKeyNotFound(err error) bool {
	return err.Error() == badger.ErrKeyNotFound.Error()
}
