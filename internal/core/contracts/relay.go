package contracts

import (
	"context"

	"duochat/internal/core/domain"
)

// Publisher relays an event after its authoritative write has been acknowledged.
// It never fails and never blocks on a peer.
type Publisher interface {
	Publish(ctx context.Context, ev domain.RelayEvent)
}
