package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"duochat/internal/app/presence"
	"duochat/internal/app/registry"
	"duochat/internal/app/relay"
	"duochat/internal/app/server"
	"duochat/internal/config"
	"duochat/internal/core/domain"
	"duochat/internal/core/services"
	"duochat/internal/platform/metrics"
	"duochat/internal/plugins/memory"
	"duochat/pkg/testutil"
)

type ServerSuite struct {
	suite.Suite
	ts  *httptest.Server
	hub *registry.Registry
	seq int
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	log := testutil.Logger()
	cfg := config.Config{
		Service: &config.ServiceConfig{Name: "duochat-test", Add: ":0"},
		Relay:   &config.RelayConfig{SendBuffer: 16, ReadLimit: 64 << 10},
		RateLimit: &config.RateLimitConfig{
			APILimit:    200,
			APIWindow:   15 * time.Minute,
			ChatsLimit:  5,
			ChatsWindow: 15 * time.Minute,
		},
	}
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	users := memory.NewUserRepository()
	chats := memory.NewChatRepository()
	friends := memory.NewFriendRequestRepository()
	seen := memory.NewPresenceStore()

	s.hub = registry.NewRegistry(m)
	s.hub.Observe(presence.NewBroadcaster(log, nil, m))
	router := relay.NewRouter(log, s.hub, m)

	userSvc := services.NewUserService(log, users, nil, s.hub, seen)
	chatSvc := services.NewChatService(log, chats, userSvc, router, false)
	friendSvc := services.NewFriendService(log, friends, chats, users, services.NopTxManager{}, router)

	srv := server.NewServer(log, cfg, server.Deps{
		Users:    userSvc,
		Tokens:   services.NewTokenService("test-secret", time.Hour),
		Friends:  friendSvc,
		Chats:    chatSvc,
		Manager:  services.NewManagerService(log, chatSvc, friendSvc),
		Registry: s.hub,
		Limiter:  memory.NewRateLimiter(),
		Metrics:  m,
		Gatherer: promReg,
	})
	s.ts = httptest.NewServer(srv.Handler())
}

func (s *ServerSuite) TearDownTest() {
	for _, e := range s.hub.Snapshot("") {
		e.Client.Close()
	}
	s.ts.Close()
}

type account struct {
	token string
	user  domain.User
}

func (s *ServerSuite) do(method, path, token string, body any, out any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (s *ServerSuite) register(name string) account {
	s.seq++
	var out struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	resp := s.do(http.MethodPost, "/api/users/register", "", map[string]string{
		"phoneNumber": fmt.Sprintf("+91 97%08d", s.seq),
		"name":        name,
		"sessionId":   "session-" + name,
	}, &out)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Require().NotEmpty(out.Token)
	return account{token: out.Token, user: out.User}
}

// befriend runs the request/accept flow over REST and returns the chat id.
func (s *ServerSuite) befriend(a, b account) string {
	var fr domain.FriendRequest
	resp := s.do(http.MethodPost, "/api/friend-requests", a.token, map[string]any{"toUserId": b.user.ID}, &fr)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp = s.do(http.MethodPut, "/api/friend-requests/"+fr.ID, b.token, map[string]string{"status": "accepted"}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var chats []struct {
		ID string `json:"id"`
	}
	resp = s.do(http.MethodGet, "/api/chats", a.token, nil, &chats)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(chats, 1)
	return chats[0].ID
}

func (s *ServerSuite) dial(a account) *websocket.Conn {
	u := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws?token=" + a.token
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusSwitchingProtocols, resp.StatusCode)
	s.Require().NoError(conn.WriteJSON(map[string]any{"type": "join", "userId": a.user.ID}))
	s.Equal(domain.EventJoined, s.next(conn).Type)
	return conn
}

// next reads frames until one that is not a presence announcement arrives.
func (s *ServerSuite) next(conn *websocket.Conn) testutil.Envelope {
	for {
		s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
		var env testutil.Envelope
		s.Require().NoError(conn.ReadJSON(&env))
		if env.Type != domain.EventUserOnline && env.Type != domain.EventUserOffline {
			return env
		}
	}
}

func (s *ServerSuite) TestHealth() {
	var out map[string]string
	resp := s.do(http.MethodGet, "/api/health", "", nil, &out)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("OK", out["status"])
}

func (s *ServerSuite) TestAuthRequired() {
	resp := s.do(http.MethodGet, "/api/users", "", nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/users", "not-a-token", nil, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.ts.URL, "http")+"/ws", nil)
	s.Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *ServerSuite) TestRegisterConflictAndValidation() {
	body := map[string]string{"phoneNumber": "9123456789", "name": "Asha", "sessionId": "s"}
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/api/users/register", "", body, nil).StatusCode)
	s.Equal(http.StatusConflict, s.do(http.MethodPost, "/api/users/register", "", body, nil).StatusCode)

	var msg struct {
		Message string `json:"message"`
	}
	resp := s.do(http.MethodPost, "/api/users/register", "", map[string]string{"phoneNumber": "12", "name": "Asha", "sessionId": "s"}, &msg)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.NotContains(msg.Message, "validation failed")
}

func (s *ServerSuite) TestMessageReachesConnectedReceiver() {
	asha, bala := s.register("Asha"), s.register("Bala")
	chatID := s.befriend(asha, bala)
	conn := s.dial(bala)
	defer conn.Close()

	var sent struct {
		Message domain.Message `json:"message"`
		Chat    struct {
			ID          string `json:"id"`
			LastMessage string `json:"lastMessage"`
		} `json:"chat"`
	}
	resp := s.do(http.MethodPost, "/api/chats/"+chatID+"/messages", asha.token, map[string]string{"content": "hello"}, &sent)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("hello", sent.Chat.LastMessage)

	env := s.next(conn)
	s.Require().Equal(domain.EventNewMessage, env.Type)
	var p domain.MessagePayload
	s.Require().NoError(env.Decode(&p))
	s.Equal(sent.Message.ID, p.Message.ID)
	s.Equal(domain.EventChatListInvalidated, s.next(conn).Type)

	resp = s.do(http.MethodPut, "/api/chats/"+chatID+"/messages/"+sent.Message.ID+"/status", asha.token, map[string]string{"status": "read"}, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	var updated domain.Message
	resp = s.do(http.MethodPut, "/api/chats/"+chatID+"/messages/"+sent.Message.ID+"/status", bala.token, map[string]string{"status": "read"}, &updated)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(domain.MessageRead, updated.Status)
}

func (s *ServerSuite) TestSocketSendAndTyping() {
	asha, bala := s.register("Asha"), s.register("Bala")
	chatID := s.befriend(asha, bala)
	a, b := s.dial(asha), s.dial(bala)
	defer a.Close()
	defer b.Close()

	s.Require().NoError(a.WriteJSON(map[string]any{
		"type":    "typing",
		"payload": map[string]any{"chatId": chatID, "receiverId": bala.user.ID, "isTyping": true},
	}))
	s.Equal(domain.EventTyping, s.next(b).Type)

	s.Require().NoError(a.WriteJSON(map[string]any{"type": "send-message", "chatId": chatID, "content": "over the socket"}))
	s.Equal(domain.EventMessageSent, s.next(a).Type)
	s.Equal(domain.EventNewMessage, s.next(b).Type)

	s.Require().NoError(a.WriteJSON(map[string]any{"type": "nonsense"}))
	s.Equal(domain.EventChatListInvalidated, s.next(a).Type)
	env := s.next(a)
	s.Require().Equal(domain.EventError, env.Type)
	var e domain.ErrorMessage
	s.Require().NoError(env.Decode(&e))
	s.Equal(services.CodeUnknownFrame, e.Code)
}

func (s *ServerSuite) TestPresenceVisibleOverREST() {
	asha, bala := s.register("Asha"), s.register("Bala")
	conn := s.dial(bala)

	var list []domain.UserSummary
	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/api/users", asha.token, nil, &list).StatusCode)
	s.Require().Len(list, 1)
	s.True(list[0].IsOnline)

	conn.Close()
	s.Eventually(func() bool { return !s.hub.IsOnline(bala.user.ID) }, 2*time.Second, 10*time.Millisecond)
}

func (s *ServerSuite) TestFriendRequestsCarryBothParties() {
	asha, bala := s.register("Asha"), s.register("Bala")

	var sent services.FriendRequestView
	resp := s.do(http.MethodPost, "/api/friend-requests", asha.token, map[string]any{"toUserId": bala.user.ID}, &sent)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Require().NotNil(sent.FromUser)
	s.Require().NotNil(sent.ToUser)
	s.Equal("Asha", sent.FromUser.Name)
	s.Equal(bala.user.ID, sent.ToUser.ID)

	var pending []services.FriendRequestView
	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/api/friend-requests/pending", bala.token, nil, &pending).StatusCode)
	s.Require().Len(pending, 1)
	s.Require().NotNil(pending[0].FromUser)
	s.Equal(asha.user.PhoneNumber, pending[0].FromUser.PhoneNumber)

	var resolved services.FriendRequestView
	resp = s.do(http.MethodPut, "/api/friend-requests/"+sent.ID, bala.token, map[string]string{"status": "declined"}, &resolved)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(domain.FriendRequestDeclined, resolved.Status)
	s.Require().NotNil(resolved.ToUser)
	s.Equal("Bala", resolved.ToUser.Name)
}

func (s *ServerSuite) TestChatsRateLimited() {
	asha := s.register("Asha")
	var resp *http.Response
	for i := 0; i < 5; i++ {
		resp = s.do(http.MethodGet, "/api/chats", asha.token, nil, nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
	}
	s.Equal("0", resp.Header.Get("RateLimit-Remaining"))

	resp = s.do(http.MethodGet, "/api/chats", asha.token, nil, nil)
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
	s.Equal("900", resp.Header.Get("Retry-After"))

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/users", asha.token, nil, nil).StatusCode, "api scope is counted separately")
}
