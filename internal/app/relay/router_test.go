package relay

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/app/presence"
	"duochat/internal/app/registry"
	"duochat/internal/core/domain"
	"duochat/internal/platform/metrics"
	"duochat/pkg/testutil"
)

func newRouter(t *testing.T) (*Router, *registry.Registry) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	reg := registry.NewRegistry(m)
	reg.Observe(presence.NewBroadcaster(testutil.Logger(), nil, m))
	return NewRouter(testutil.Logger(), reg, m), reg
}

func TestPublishTargetedDeliversOnlyToTarget(t *testing.T) {
	r, reg := newRouter(t)
	h1, h2 := testutil.NewFakeClient(), testutil.NewFakeClient()
	reg.Register("u1", h1)
	reg.Register("u2", h2)

	r.Publish(context.Background(), domain.RelayEvent{
		Kind:    domain.EventTyping,
		Target:  "u2",
		Origin:  "u1",
		Payload: domain.TypingPayload{ChatID: "c1", UserID: "u1", IsTyping: true},
	})

	// u1 saw u2 come online; u2 saw nothing about itself.
	assert.Equal(t, []domain.EventKind{domain.EventUserOnline}, h1.Kinds())
	require.Equal(t, []domain.EventKind{domain.EventTyping}, h2.Kinds())

	var p domain.TypingPayload
	require.NoError(t, h2.Envelopes()[0].Decode(&p))
	assert.Equal(t, "c1", p.ChatID)
	assert.True(t, p.IsTyping)
}

func TestPublishToOfflineTargetIsSilentAndNonBlocking(t *testing.T) {
	r, _ := newRouter(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Publish(context.Background(), domain.RelayEvent{Kind: domain.EventFriendRequestCreated, Target: "ghost"})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish to offline target blocked")
	}
}

func TestPublishToClosedHandleUnregistersIt(t *testing.T) {
	r, reg := newRouter(t)
	h := testutil.NewFakeClient()
	reg.Register("u1", h)
	h.Close()

	r.Publish(context.Background(), domain.RelayEvent{Kind: domain.EventNewMessage, Target: "u1"})

	assert.False(t, reg.IsOnline("u1"))
}

func TestDeadOldHandleDoesNotEvictReplacement(t *testing.T) {
	r, reg := newRouter(t)
	h1, h2 := testutil.NewFakeClient(), testutil.NewFakeClient()
	reg.Register("u1", h1)
	reg.Register("u1", h2)
	h1.Close()

	// A delivery that raced to the old handle tries to reap it.
	r.deliver(context.Background(), string(domain.EventNewMessage), "u1", h1, []byte(`{}`))

	got, ok := reg.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, h2, got)
}

func TestBackpressureDropsWithoutUnregistering(t *testing.T) {
	r, reg := newRouter(t)
	h := testutil.NewFakeClient()
	reg.Register("u1", h)
	h.SetFull(true)

	r.Publish(context.Background(), domain.RelayEvent{Kind: domain.EventNewMessage, Target: "u1"})

	assert.True(t, reg.IsOnline("u1"))
	assert.Empty(t, h.Kinds())
}

func TestBroadcastSkipsOriginAndToleratesDeadPeers(t *testing.T) {
	r, reg := newRouter(t)
	origin, dead, live := testutil.NewFakeClient(), testutil.NewFakeClient(), testutil.NewFakeClient()
	reg.Register("origin", origin)
	reg.Register("dead", dead)
	reg.Register("live", live)
	dead.Close()

	r.Publish(context.Background(), domain.RelayEvent{
		Kind:      domain.EventChatListInvalidated,
		Broadcast: true,
		Origin:    "origin",
		Payload:   domain.ChatUpdatedPayload{ChatID: "c1"},
	})

	assert.NotContains(t, origin.Kinds(), domain.EventChatListInvalidated)
	assert.Contains(t, live.Kinds(), domain.EventChatListInvalidated)
	assert.False(t, reg.IsOnline("dead"))
	// live also heard dead go offline once it was reaped.
	assert.Contains(t, live.Kinds(), domain.EventUserOffline)
}

func TestPerHandleOrderIsPreserved(t *testing.T) {
	r, reg := newRouter(t)
	h := testutil.NewFakeClient()
	reg.Register("u1", h)

	kinds := []domain.EventKind{
		domain.EventNewMessage,
		domain.EventChatListInvalidated,
		domain.EventTyping,
		domain.EventFriendRequestResolved,
	}
	for _, k := range kinds {
		r.Publish(context.Background(), domain.RelayEvent{Kind: k, Target: "u1"})
	}
	assert.Equal(t, kinds, h.Kinds())
}
