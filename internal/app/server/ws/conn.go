package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"duochat/pkg/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type WebSocket struct {
	*websocket.Conn
	ctx       context.Context
	cancel    context.CancelFunc
	log       *slog.Logger
	readLimit int64
}

func NewWebSocket(parent context.Context, conn *websocket.Conn, log *slog.Logger, readLimit int64) *WebSocket {
	ctx, cancel := context.WithCancel(parent)
	if readLimit <= 0 {
		readLimit = 512 * 1024
	}
	return &WebSocket{Conn: conn, ctx: ctx, cancel: cancel, log: log, readLimit: readLimit}
}

// Done is closed once the socket is closed from either side.
func (w *WebSocket) Done() <-chan struct{} { return w.ctx.Done() }

func (w *WebSocket) WriteMessage(data []byte) error {
	_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WebSocket) WritePing() error {
	return w.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ReadLoop delivers each non-empty text frame to onMsg, in order, until the
// peer goes away or the socket is closed.
func (w *WebSocket) ReadLoop(onMsg func([]byte)) {
	defer w.Close()

	w.Conn.SetReadLimit(w.readLimit)
	_ = w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	w.Conn.SetPongHandler(func(string) error {
		return w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				w.log.Warn("ws - read loop - unexpected close", logging.Err(err))
			}
			return
		}
		if len(data) > 0 {
			onMsg(data)
		}
	}
}

func (w *WebSocket) Close() {
	w.cancel()
	_ = w.Conn.Close()
}
