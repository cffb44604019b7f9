package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/core/domain"
	"duochat/internal/plugins/memory"
	"duochat/pkg/testutil"
)

type failingStore struct{}

func (failingStore) MarkSeen(context.Context, domain.UserID, time.Time) error {
	return errors.New("store down")
}

func (failingStore) LastSeen(context.Context, []domain.UserID) (map[domain.UserID]time.Time, error) {
	return nil, nil
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	w := NewPresenceWorker(testutil.Logger(), memory.NewPresenceStore(), 1)
	assert.True(t, w.Enqueue(domain.PresenceChange{UserID: "u1"}))
	assert.False(t, w.Enqueue(domain.PresenceChange{UserID: "u2"}))
}

func TestRunMirrorsAndFlushesOnShutdown(t *testing.T) {
	store := memory.NewPresenceStore()
	w := NewPresenceWorker(testutil.Logger(), store, 8)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.True(t, w.Enqueue(domain.PresenceChange{UserID: "u1", Online: true, At: at}))
	require.True(t, w.Enqueue(domain.PresenceChange{UserID: "u2", Online: false, At: at}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	seen, err := store.LastSeen(context.Background(), []domain.UserID{"u1", "u2", "u3"})
	require.NoError(t, err)
	assert.Equal(t, at, seen["u1"])
	assert.Equal(t, at, seen["u2"])
	assert.NotContains(t, seen, domain.UserID("u3"))
}

func TestProcessChangeSurfacesStoreErrors(t *testing.T) {
	w := NewPresenceWorker(testutil.Logger(), failingStore{}, 1)
	err := w.ProcessChange(context.Background(), domain.PresenceChange{UserID: "u1"})
	assert.Error(t, err)
}
