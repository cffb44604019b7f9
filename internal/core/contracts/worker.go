package contracts

import (
	"context"

	"duochat/internal/core/domain"
)

type AsyncWorker interface {
	// Run drains queued work until ctx is cancelled.
	Run(ctx context.Context) error
	// Enqueue hands a presence transition to the worker without blocking.
	// It reports false when the queue is full and the change was dropped.
	Enqueue(change domain.PresenceChange) bool
	// ProcessChange writes one transition to the presence store.
	ProcessChange(ctx context.Context, change domain.PresenceChange) error
}
