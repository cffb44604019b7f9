package registry

import (
	"sync"
	"time"

	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
	"duochat/internal/platform/metrics"
)

// Observer is told about every presence transition together with the peers
// that should hear about it. It runs inside the registry's critical section,
// so implementations must not block or call back into the Registry.
type Observer interface {
	PresenceChanged(change domain.PresenceChange, peers []contracts.Entry)
}

// Registry maps each identity to at most one live connection. A newer
// connection for the same identity replaces the older one; removal is
// compare-and-remove so a late disconnect of a superseded connection is a no-op.
type Registry struct {
	mu       sync.RWMutex
	clients  map[domain.UserID]contracts.Client // user_id → client
	observer Observer
	metrics  *metrics.Metrics
	nowFn    func() time.Time
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		clients: make(map[domain.UserID]contracts.Client),
		metrics: m,
		nowFn:   time.Now,
	}
}

// Observe installs the presence observer. Call before serving connections.
func (h *Registry) Observe(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observer = o
}

func (h *Registry) Register(id domain.UserID, c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev, ok := h.clients[id]
	if ok && prev == c {
		return
	}
	h.clients[id] = c
	if ok {
		h.metrics.IncReplacement()
	}
	h.metrics.SetConnections(len(h.clients))
	h.announceLocked(id, true)
}

func (h *Registry) Lookup(id domain.UserID) (contracts.Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

func (h *Registry) Unregister(id domain.UserID, c contracts.Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[id]; !ok || cur != c {
		return false
	}
	delete(h.clients, id)
	h.metrics.SetConnections(len(h.clients))
	h.announceLocked(id, false)
	return true
}

func (h *Registry) Snapshot(except domain.UserID) []contracts.Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.peersLocked(except)
}

func (h *Registry) IsOnline(id domain.UserID) bool {
	_, ok := h.Lookup(id)
	return ok
}

// Online reports liveness for each of ids under a single read lock.
func (h *Registry) Online(ids []domain.UserID) map[domain.UserID]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[domain.UserID]bool, len(ids))
	for _, id := range ids {
		_, out[id] = h.clients[id]
	}
	return out
}

func (h *Registry) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Registry) announceLocked(id domain.UserID, online bool) {
	if h.observer == nil {
		return
	}
	change := domain.PresenceChange{UserID: id, Online: online, At: h.nowFn()}
	h.observer.PresenceChanged(change, h.peersLocked(id))
}

func (h *Registry) peersLocked(except domain.UserID) []contracts.Entry {
	out := make([]contracts.Entry, 0, len(h.clients))
	for id, c := range h.clients {
		if id == except {
			continue
		}
		out = append(out, contracts.Entry{UserID: id, Client: c})
	}
	return out
}
