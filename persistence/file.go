package persistence

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/hydra-head/hydra-node/headstate"
	"github.com/hydra-head/hydra-node/ledger"
)

// FileLog is a dependency-free Store, the one the CLI uses unless its
// --store flag selects the Badger-backed BadgerLog. Save writes to a temporary file in
// the same directory, syncs it, then renames it over the target path, an
// adaptation of dedis-tlc's fs.WriteFileOnce (qscod/fs/atomic.go): that
// helper hard-links a temp file into place and so deliberately fails if the
// target already exists, which is wrong for a store that overwrites its one
// state file on every change. Renaming in its place keeps the same
// no-partial-file guarantee (os.Rename is atomic on any POSIX filesystem)
// while allowing repeated Save calls to replace the prior state.
type FileLog struct {
	mu     sync.Mutex
	path   string
	ledger ledger.Ledger
}

// NewFileLog returns a FileLog that persists to path.
func NewFileLog(path string, l ledger.Ledger) *FileLog {
	return &FileLog{path: path, ledger: l}
}

// Load implements Store.
func (f *FileLog) Load() (headstate.HeadState, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := ioutil.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	s, err := Decode(f.ledger, data)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Save implements Store.
func (f *FileLog) Save(s headstate.HeadState) error {
	data, err := Encode(f.ledger, s)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return writeFileAtomic(f.path, data, 0o600)
}

// Close implements Store; FileLog holds no open file handles between calls.
func (f *FileLog) Close() error { return nil }

func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir, name := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmpfile, err := ioutil.TempFile(dir, fmt.Sprintf("%s-*.tmp", name))
	if err != nil {
		return err
	}
	tmpname := tmpfile.Name()
	defer func() {
		tmpfile.Close()
		os.Remove(tmpname)
	}()

	n, err := tmpfile.Write(data)
	if err != nil {
		return err
	}
	if n < len(data) {
		return fmt.Errorf("persistence: short write to %s", tmpname)
	}
	if err := tmpfile.Chmod(perm); err != nil {
		return err
	}
	if err := tmpfile.Sync(); err != nil {
		return err
	}
	if err := tmpfile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpname, filename)
}
