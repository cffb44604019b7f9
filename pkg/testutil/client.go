// Package testutil holds fakes shared by package tests.
package testutil

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
)

// FakeClient records frames sent to it. It satisfies contracts.Client.
type FakeClient struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
	full   bool
}

func NewFakeClient() *FakeClient {
	return &FakeClient{id: uuid.NewString()}
}

func (c *FakeClient) ConnID() string { return c.id }

func (c *FakeClient) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return contracts.ErrClientClosed
	}
	if c.full {
		return contracts.ErrClientBackpressure
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *FakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// SetFull makes subsequent sends fail with backpressure.
func (c *FakeClient) SetFull(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
}

func (c *FakeClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Envelopes decodes every recorded frame header.
func (c *FakeClient) Envelopes() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var e Envelope
		if err := json.Unmarshal(f, &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// Kinds lists the event types received, in order.
func (c *FakeClient) Kinds() []domain.EventKind {
	envs := c.Envelopes()
	out := make([]domain.EventKind, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Type)
	}
	return out
}

// Envelope is a decoded outbound frame with its payload left raw.
type Envelope struct {
	Type    domain.EventKind `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

var _ contracts.Client = (*FakeClient)(nil)
