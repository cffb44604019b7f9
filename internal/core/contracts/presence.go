package contracts

import (
	"context"
	"time"

	"duochat/internal/core/domain"
)

// PresenceStore mirrors presence transitions so "last seen" survives restarts.
// Live online state always comes from the registry, never from this store.
type PresenceStore interface {
	// MarkSeen records that the user was observed at the given instant.
	MarkSeen(ctx context.Context, userID domain.UserID, at time.Time) error
	// LastSeen returns known timestamps; users never seen are absent.
	LastSeen(ctx context.Context, ids []domain.UserID) (map[domain.UserID]time.Time, error)
}
