package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/core/contracts"
	"duochat/pkg/testutil"
)

// serve upgrades one connection, hands its client to the test and echoes
// inbound frames back through the client until the socket closes.
func serve(t *testing.T, buffer int) (*websocket.Conn, <-chan *RuntimeClient, <-chan struct{}) {
	t.Helper()
	clients := make(chan *RuntimeClient, 1)
	done := make(chan struct{})
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		socket := NewWebSocket(context.Background(), conn, testutil.Logger(), 0)
		c := NewClient(socket, buffer)
		clients <- c
		socket.ReadLoop(func(data []byte) { _ = c.Send(data) })
		close(done)
	}))
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, clients, done
}

func TestClientPreservesSendOrder(t *testing.T) {
	conn, clients, _ := serve(t, 64)
	c := <-clients

	for i := 0; i < 20; i++ {
		require.NoError(t, c.Send([]byte(fmt.Sprintf(`{"n":%d}`, i))))
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got struct{ N int }
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, i, got.N)
	}
	assert.NotEmpty(t, c.ConnID())
}

func TestClientEchoesInboundFrames(t *testing.T) {
	conn, _, _ := serve(t, 8)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ping"}`, string(data))
}

func TestSendAfterPeerCloseFailsClosed(t *testing.T) {
	conn, clients, done := serve(t, 8)
	c := <-clients

	require.NoError(t, conn.Close())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not observe the close")
	}
	assert.ErrorIs(t, c.Send([]byte(`{}`)), contracts.ErrClientClosed)
	c.Close()
	c.Close()
}

func TestSendNeverSucceedsAfterReportingClosed(t *testing.T) {
	conn, clients, _ := serve(t, 1024)
	c := <-clients

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		closedAt := -1
		for i := 0; closedAt < 0 || i < closedAt+200; i++ {
			err := c.Send([]byte(`{}`))
			if closedAt >= 0 {
				assert.ErrorIs(t, err, contracts.ErrClientClosed, "send %d", i)
				continue
			}
			if err != nil && !errors.Is(err, contracts.ErrClientBackpressure) {
				assert.ErrorIs(t, err, contracts.ErrClientClosed)
				closedAt = i
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, conn.Close())
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("sender never observed the close")
	}
}
