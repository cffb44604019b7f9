package worker

import (
	"context"
	"log/slog"

	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
	"duochat/pkg/logging"
)

// PresenceWorker mirrors presence transitions into the presence store off the
// registry's critical path.
type PresenceWorker struct {
	log   *slog.Logger
	store contracts.PresenceStore
	queue chan domain.PresenceChange
}

func NewPresenceWorker(
	log *slog.Logger,
	store contracts.PresenceStore,
	size int,
) *PresenceWorker {
	if size <= 0 {
		size = 1024
	}
	return &PresenceWorker{
		log:   log,
		store: store,
		queue: make(chan domain.PresenceChange, size),
	}
}

func (w *PresenceWorker) Enqueue(change domain.PresenceChange) bool {
	select {
	case w.queue <- change:
		return true
	default:
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is already
// buffered.
func (w *PresenceWorker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "worker - run - presence mirror started")
	for {
		select {
		case <-ctx.Done():
			w.drain()
			w.log.Info("worker - run - presence mirror stopped")
			return nil
		case change := <-w.queue:
			_ = w.ProcessChange(ctx, change)
		}
	}
}

func (w *PresenceWorker) drain() {
	ctx := context.Background()
	for {
		select {
		case change := <-w.queue:
			_ = w.ProcessChange(ctx, change)
		default:
			return
		}
	}
}

// ProcessChange records the transition instant as the user's last-seen time.
func (w *PresenceWorker) ProcessChange(ctx context.Context, change domain.PresenceChange) error {
	if err := w.store.MarkSeen(ctx, change.UserID, change.At); err != nil {
		w.log.ErrorContext(ctx, "worker - process change - mark seen failed", logging.User(change.UserID.String()), logging.Err(err))
		return err
	}
	w.log.DebugContext(ctx, "worker - process change - mark seen success", logging.User(change.UserID.String()), "online", change.Online)
	return nil
}

var _ contracts.AsyncWorker = (*PresenceWorker)(nil)
