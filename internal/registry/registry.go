// Package registry tracks the peers currently attached to a Server: their
// address, handshake-negotiated ScreenInfo, and the Handle used to reach
// them. It is adapted from the broadcast/backpressure hub pattern used
// elsewhere in this codebase, generalized from raw frames to protocol
// messages and keyed by peer address instead of an opaque client pointer.
package registry

import (
	"net"
	"sync"

	"github.com/kstaniek/go-corenet/internal/connection"
	"github.com/kstaniek/go-corenet/internal/logging"
	"github.com/kstaniek/go-corenet/internal/protocol"
)

// Peer is what the registry knows about one connected endpoint.
type Peer struct {
	Addr       net.Addr
	ScreenInfo protocol.ScreenInfo
	Handle     *connection.Handle
}

// Registry is a read-mostly map of connected peers, guarded by a
// read/write lock; writers are the accept/disconnect paths only, matching
// the concurrency model's shared-resource policy for the client registry.
type Registry struct {
	mu    sync.RWMutex
	peers map[net.Addr]*Peer
}

// New returns an empty Registry.
func New() *Registry { return &Registry{peers: make(map[net.Addr]*Peer)} }

// Add registers a peer, replacing any previous entry at the same address.
func (r *Registry) Add(p *Peer) {
	r.mu.Lock()
	prev := len(r.peers)
	r.peers[p.Addr] = p
	cur := len(r.peers)
	r.mu.Unlock()
	if prev == 0 && cur == 1 {
		logging.L().Info("peers_first_connected")
	}
}

// Remove unregisters the peer at addr, marking its handle disconnected.
// Safe to call multiple times.
func (r *Registry) Remove(addr net.Addr) {
	r.mu.Lock()
	p, existed := r.peers[addr]
	if existed {
		delete(r.peers, addr)
	}
	cur := len(r.peers)
	r.mu.Unlock()
	if existed {
		p.Handle.MarkDisconnected()
		if cur == 0 {
			logging.L().Info("peers_last_disconnected")
		}
	}
}

// Get looks up the peer at addr.
func (r *Registry) Get(addr net.Addr) (*Peer, bool) {
	r.mu.RLock()
	p, ok := r.peers[addr]
	r.mu.RUnlock()
	return p, ok
}

// Snapshot returns a slice copy of the currently registered peers.
func (r *Registry) Snapshot() []*Peer {
	r.mu.RLock()
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	r.mu.RUnlock()
	return out
}

// Count returns the number of registered peers.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.peers)
	r.mu.RUnlock()
	return n
}

// Broadcast enqueues msg on every registered peer's handle, best-effort: a
// peer whose outbound queue is full or whose handle is disconnected is
// simply skipped (the writer pump will notice the disconnect and clean up).
func (r *Registry) Broadcast(msg protocol.Message) {
	for _, p := range r.Snapshot() {
		_ = p.Handle.Send(msg)
	}
}

// SendTo enqueues msg on the handle for addr, or reports that no such peer
// is registered.
func (r *Registry) SendTo(addr net.Addr, msg protocol.Message) error {
	p, ok := r.Get(addr)
	if !ok {
		return connection.ErrClosed
	}
	return p.Handle.Send(msg)
}

// FirstOnEdge is the fallback for routing a screen-edge transition when
// the layout has no explicit neighbor configured. It returns one registered
// peer, regardless of edge; registration order is not kept, so when several
// peers are registered which one is returned is not defined. Production
// callers should prefer consulting the layout and treat this as a last
// resort.
func (r *Registry) FirstOnEdge() (*Peer, bool) {
	peers := r.Snapshot()
	if len(peers) == 0 {
		return nil, false
	}
	return peers[0], true
}
