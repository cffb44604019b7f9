package memory

import (
	"context"
	"sync"
	"time"

	"duochat/internal/core/domain"
)

// PresenceStore keeps last-seen timestamps for the lifetime of the process.
type PresenceStore struct {
	mu   sync.RWMutex
	seen map[domain.UserID]time.Time
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{seen: make(map[domain.UserID]time.Time)}
}

func (p *PresenceStore) MarkSeen(_ context.Context, userID domain.UserID, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.seen[userID]; !ok || at.After(prev) {
		p.seen[userID] = at
	}
	return nil
}

func (p *PresenceStore) LastSeen(_ context.Context, ids []domain.UserID) (map[domain.UserID]time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[domain.UserID]time.Time, len(ids))
	for _, id := range ids {
		if t, ok := p.seen[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}
