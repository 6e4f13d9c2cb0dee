package partycrypto

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
)

const pemKeyFile = "priv_key.pem"

// PemKey reads and writes a party's private key to a PEM file under a data
// directory, grounded on babble's crypto.PemKey.
type PemKey struct {
	l    sync.Mutex
	path string
}

// NewPemKey returns a PemKey rooted at base/priv_key.pem.
func NewPemKey(base string) *PemKey {
	return &PemKey{path: filepath.Join(base, pemKeyFile)}
}

// ReadKey reads and parses the private key. It returns (nil, nil) if no key
// file exists yet.
func (k *PemKey) ReadKey() (*ecdsa.PrivateKey, error) {
	k.l.Lock()
	defer k.l.Unlock()

	buf, err := ioutil.ReadFile(k.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, nil
	}

	block, _ := pem.Decode(buf)
	if block == nil {
		return nil, fmt.Errorf("error decoding PEM block from %s", k.path)
	}

	return x509.ParseECPrivateKey(block.Bytes)
}

// WriteKey PEM-encodes and persists priv, creating the data directory if
// needed.
func (k *PemKey) WriteKey(priv *ecdsa.PrivateKey) error {
	k.l.Lock()
	defer k.l.Unlock()

	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return err
	}

	block := &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}

	if err := os.MkdirAll(filepath.Dir(k.path), 0700); err != nil {
		return err
	}

	return ioutil.WriteFile(k.path, pem.EncodeToMemory(block), 0600)
}
