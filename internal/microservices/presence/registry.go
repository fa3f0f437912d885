package presence

import (
	"log/slog"
	"sync"
)

// Handle is one live transport session as seen by the registry and room tracker
type Handle interface {
	// ID identifies the connection, unique per process lifetime
	ID() string
	PrincipalID() string
	// Send queues an already-encoded frame; false when the handle can no longer accept it
	Send(frame []byte) bool
	Close() error
}

// Registry maps principal id to its single live connection
type Registry struct {
	conns  map[string]Handle
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]Handle),
		logger: logger,
	}
}

// Register makes h the live connection for its principal.
// An existing connection for the same principal is closed first and returned.
func (r *Registry) Register(h Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.conns[h.PrincipalID()]
	if ok && prev != h {
		if err := prev.Close(); err != nil {
			r.logger.Warn("client_evict_close_failed", "principal_id", h.PrincipalID(), "conn_id", prev.ID(), "error", err)
		}
		r.logger.Info("client_evicted", "principal_id", h.PrincipalID(), "conn_id", prev.ID(), "replaced_by", h.ID())
	} else {
		prev = nil
	}

	r.conns[h.PrincipalID()] = h
	r.logger.Info("client_registered", "principal_id", h.PrincipalID(), "conn_id", h.ID(), "total", len(r.conns))
	return prev
}

// Unregister removes the entry only while it still points at h,
// so a late disconnect of an evicted connection leaves its successor alone
func (r *Registry) Unregister(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.conns[h.PrincipalID()]
	if !ok || cur != h {
		return false
	}
	delete(r.conns, h.PrincipalID())
	r.logger.Info("client_unregistered", "principal_id", h.PrincipalID(), "conn_id", h.ID(), "total", len(r.conns))
	return true
}

func (r *Registry) Get(principalID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.conns[principalID]
	return h, ok
}

func (r *Registry) IsOnline(principalID string) bool {
	_, ok := r.Get(principalID)
	return ok
}

// All returns a snapshot of every live connection
func (r *Registry) All() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handle, 0, len(r.conns))
	for _, h := range r.conns {
		out = append(out, h)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
