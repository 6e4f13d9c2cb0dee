package node

import (
	"fmt"
	"sync"

	"github.com/hydra-head/hydra-node/party"
)

// PeerBook maps each known Party to the network address the runtime's
// Transport should dial to reach it, grounded on node/node.go's
// peers *peers.PeerSet lookup used before every Sync/EagerSync/FastForward
// call — here generalized to the head protocol's small, fixed party set
// (spec.md §3: parties are fixed for the lifetime of one head).
type PeerBook struct {
	mu    sync.RWMutex
	addrs map[string]string // VerificationKeyHex -> address
}

// NewPeerBook returns an empty PeerBook.
func NewPeerBook() *PeerBook {
	return &PeerBook{addrs: make(map[string]string)}
}

// Set records addr as how to reach p.
func (b *PeerBook) Set(p party.Party, addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addrs[p.VerificationKeyHex] = addr
}

// Remove forgets p.
func (b *PeerBook) Remove(p party.Party) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.addrs, p.VerificationKeyHex)
}

// Addr returns the address for p, if known.
func (b *PeerBook) Addr(p party.Party) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	addr, ok := b.addrs[p.VerificationKeyHex]
	return addr, ok
}

// All returns every (Party, addr) pair currently known, for broadcast.
func (b *PeerBook) All() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.addrs))
	for k, v := range b.addrs {
		out[k] = v
	}
	return out
}

// ErrUnknownPeer is returned when an address lookup misses.
func errUnknownPeer(key string) error {
	return fmt.Errorf("node: no known address for peer %s", key)
}
