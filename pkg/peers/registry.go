// Package peers keeps the set of peers discovered on the local network.
package peers

import (
	"sort"
	"sync"
	"time"
)

// Peer is a discovered node that can receive transfers.
type Peer struct {
	ID        string
	Name      string
	IP        string
	Port      uint16
	SSID      string
	Transport string
	LastSeen  time.Time
}

// Registry tracks active peers by id. Discovery events arrive from the
// core's worker threads while the shell reads the set, so all access is
// mutex-guarded.
type Registry struct {
	mu    sync.Mutex
	peers map[string]Peer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[string]Peer),
	}
}

// Update inserts or refreshes a peer and reports whether it was new.
func (r *Registry) Update(p Peer) bool {
	if p.LastSeen.IsZero() {
		p.LastSeen = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, known := r.peers[p.ID]
	r.peers[p.ID] = p
	return !known
}

// Remove drops a peer and returns it, if it was known.
func (r *Registry) Remove(id string) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[id]
	if ok {
		delete(r.peers, id)
	}
	return p, ok
}

// Get returns the peer with the given id.
func (r *Registry) Get(id string) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[id]
	return p, ok
}

// All returns every known peer sorted by name.
func (r *Registry) All() []Peer {
	r.mu.Lock()
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of known peers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}
