package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"duochat/internal/app/presence"
	"duochat/internal/app/registry"
	"duochat/internal/app/relay"
	"duochat/internal/core/domain"
	"duochat/internal/plugins/memory"
	"duochat/pkg/testutil"
)

var phoneSeq atomic.Int64

type harness struct {
	users   *memory.UserRepo
	chats   *memory.ChatRepo
	friends *memory.FriendRequestRepo
	seen    *memory.PresenceStore
	hub     *registry.Registry

	userSvc   *UserService
	chatSvc   *ChatService
	friendSvc *FriendService
	manager   *ManagerService
}

func newHarness(t *testing.T, broadcastUpdates bool) *harness {
	t.Helper()
	log := testutil.Logger()
	h := &harness{
		users:   memory.NewUserRepository(),
		chats:   memory.NewChatRepository(),
		friends: memory.NewFriendRequestRepository(),
		seen:    memory.NewPresenceStore(),
		hub:     registry.NewRegistry(nil),
	}
	h.hub.Observe(presence.NewBroadcaster(log, nil, nil))
	router := relay.NewRouter(log, h.hub, nil)
	h.userSvc = NewUserService(log, h.users, nil, h.hub, h.seen)
	h.chatSvc = NewChatService(log, h.chats, h.userSvc, router, broadcastUpdates)
	h.friendSvc = NewFriendService(log, h.friends, h.chats, h.users, NopTxManager{}, router)
	h.manager = NewManagerService(log, h.chatSvc, h.friendSvc)
	return h
}

func (h *harness) user(t *testing.T, name string) domain.UserID {
	t.Helper()
	u, err := h.userSvc.Register(context.Background(), RegisterInput{
		PhoneNumber: fmt.Sprintf("98%08d", phoneSeq.Add(1)),
		Name:        name,
		SessionID:   "s-" + name,
	})
	require.NoError(t, err)
	return u.ID
}

// connect registers a fake connection for id.
func (h *harness) connect(id domain.UserID) *testutil.FakeClient {
	c := testutil.NewFakeClient()
	h.hub.Register(id, c)
	return c
}

// befriend makes a and b friends and returns their chat.
func (h *harness) befriend(t *testing.T, a, b domain.UserID) *domain.Chat {
	t.Helper()
	ctx := context.Background()
	req, err := h.friendSvc.Send(ctx, a, b)
	require.NoError(t, err)
	_, err = h.friendSvc.Resolve(ctx, b, req.ID, domain.FriendRequestAccepted)
	require.NoError(t, err)
	chat, err := h.chats.FindOrCreateChat(ctx, a, b)
	require.NoError(t, err)
	return chat
}

func without(kinds []domain.EventKind, drop ...domain.EventKind) []domain.EventKind {
	var out []domain.EventKind
next:
	for _, k := range kinds {
		for _, d := range drop {
			if k == d {
				continue next
			}
		}
		out = append(out, k)
	}
	return out
}

// relayKinds lists received events other than presence announcements.
func relayKinds(c *testutil.FakeClient) []domain.EventKind {
	return without(c.Kinds(), domain.EventUserOnline, domain.EventUserOffline)
}
