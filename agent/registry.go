package agent

import (
	"sort"
	"sync"

	"github.com/testwiseco/testwise/agent/worker"
)

// Registry is the primary agent's mutex-guarded set of registered secondary
// agents, keyed by their control port.
type Registry struct {
	mu    sync.Mutex
	peers map[int]worker.Notifier
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[int]worker.Notifier)}
}

// Add registers a peer under the given port. Re-registering an existing port
// replaces the stored peer, so registration is idempotent with respect to
// registry size.
func (r *Registry) Add(port int, peer worker.Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[port] = peer
}

// Remove deregisters the peer on the given port. It reports whether a peer
// was registered there.
func (r *Registry) Remove(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.peers[port]
	delete(r.peers, port)
	return ok
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// PeerEntry pairs a registered port with its peer client.
type PeerEntry struct {
	Port int
	Peer worker.Notifier
}

// Snapshot returns the registered peers in ascending port order. The copy is
// safe to iterate while the registry keeps mutating.
func (r *Registry) Snapshot() []PeerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]PeerEntry, 0, len(r.peers))
	for port, peer := range r.peers {
		entries = append(entries, PeerEntry{Port: port, Peer: peer})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Port < entries[j].Port })
	return entries
}
