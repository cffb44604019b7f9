package contracts

import (
	"errors"

	"duochat/internal/core/domain"
)

var (
	// ErrClientClosed reports a write to a connection whose transport is gone.
	ErrClientClosed = errors.New("client closed")
	// ErrClientBackpressure reports a full outbound buffer; the frame was dropped.
	ErrClientBackpressure = errors.New("client outbound buffer full")
)

// Client represents the minimal interface required for the Registry to
// communicate with an individual WebSocket connection.
type Client interface {
	// ConnID identifies the physical connection, not the user.
	ConnID() string
	// Send enqueues a frame without blocking.
	Send(data []byte) error
	Close()
}

// Entry is one live identity to connection association.
type Entry struct {
	UserID domain.UserID
	Client Client
}

// Registry maps each identity to at most one live connection.
type Registry interface {
	// Register installs c under id, replacing any prior connection.
	Register(id domain.UserID, c Client)
	// Lookup returns the live connection for id, if any.
	Lookup(id domain.UserID) (Client, bool)
	// Unregister removes the entry only while it still points at c.
	Unregister(id domain.UserID, c Client) bool
	// Snapshot copies all live entries except the given identity.
	Snapshot(except domain.UserID) []Entry
}

// PresenceReader answers whether identities currently have a live connection.
type PresenceReader interface {
	Online(ids []domain.UserID) map[domain.UserID]bool
}
