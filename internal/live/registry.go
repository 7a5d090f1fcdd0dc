package live

import "sync"

// Registry is the concurrency-safe set of currently open viewer connections.
// It is mutated from request handling, disconnect notification, broadcast
// failure, and heartbeat eviction; iteration always works on a snapshot so
// none of those paths can deadlock or tear another's view.
type Registry struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[*Conn]struct{})}
}

// Add registers a connection.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// Remove unregisters a connection. Removing an absent connection is a no-op.
func (r *Registry) Remove(c *Conn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

// Len returns the current membership size.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns a point-in-time copy of the membership. Members removed
// after the snapshot was taken may still appear in it; callers must tolerate
// sends to them failing.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// ForEach applies fn to a snapshot of the membership. Delivery order across
// connections is unspecified.
func (r *Registry) ForEach(fn func(*Conn)) {
	for _, c := range r.Snapshot() {
		fn(c)
	}
}
