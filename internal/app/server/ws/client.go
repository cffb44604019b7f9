package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"duochat/internal/core/contracts"
)

// RuntimeClient is the connection handle kept in the registry. Frames are
// queued on a bounded buffer and written by a single goroutine, so frames sent
// to one handle arrive in the order Send accepted them.
type RuntimeClient struct {
	id   string
	ws   *WebSocket
	out  chan []byte
	once sync.Once
}

func NewClient(ws *WebSocket, buffer int) *RuntimeClient {
	if buffer <= 0 {
		buffer = 256
	}
	c := &RuntimeClient{
		id:  uuid.NewString(),
		ws:  ws,
		out: make(chan []byte, buffer),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ConnID() string { return c.id }

// Send never blocks. It fails with ErrClientClosed once the socket is gone and
// with ErrClientBackpressure when the buffer is full. A frame queued while the
// socket was closing is reported as ErrClientClosed.
func (c *RuntimeClient) Send(data []byte) error {
	if c.ws.ctx.Err() != nil {
		return contracts.ErrClientClosed
	}
	select {
	case c.out <- data:
	default:
		return contracts.ErrClientBackpressure
	}
	if c.ws.ctx.Err() != nil {
		return contracts.ErrClientClosed
	}
	return nil
}

// Close tears down the socket. out is never closed; the write loop exits on
// the socket's context instead.
func (c *RuntimeClient) Close() {
	c.once.Do(c.ws.Close)
}

func (c *RuntimeClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.ws.Done():
			return
		case data := <-c.out:
			if err := c.ws.WriteMessage(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.WritePing(); err != nil {
				return
			}
		}
	}
}

var _ contracts.Client = (*RuntimeClient)(nil)
