package services

import (
	"sync"

	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
)

type SessionState int

const (
	SessionUnannounced SessionState = iota
	SessionAnnounced
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionUnannounced:
		return "unannounced"
	case SessionAnnounced:
		return "announced"
	case SessionClosed:
		return "closed"
	}
	return "unknown"
}

// Session tracks one connection through Unannounced → Announced → Closed.
// Only an announced session owns a registry entry.
type Session struct {
	mu       sync.Mutex
	state    SessionState
	identity domain.UserID
	// expected is the authenticated subject; an empty value accepts any identity.
	expected domain.UserID
	client   contracts.Client
	registry contracts.Registry
}

func NewSession(registry contracts.Registry, client contracts.Client, expected domain.UserID) *Session {
	return &Session{
		registry: registry,
		client:   client,
		expected: expected,
	}
}

// Announce binds the connection to id and registers it. A repeated announce
// of the same identity is accepted and reported with first == false, unless a
// newer connection has taken over the identity, which yields ErrSuperseded.
func (s *Session) Announce(id domain.UserID) (first bool, err error) {
	if id == "" {
		return false, domain.ErrInvalidUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case SessionClosed:
		return false, domain.ErrSessionClosed
	case SessionAnnounced:
		if id != s.identity {
			return false, domain.ErrIdentityMismatch
		}
		if cur, ok := s.registry.Lookup(id); !ok || cur != s.client {
			return false, domain.ErrSuperseded
		}
		return false, nil
	}
	if s.expected != "" && id != s.expected {
		return false, domain.ErrIdentityMismatch
	}
	s.registry.Register(id, s.client)
	s.identity = id
	s.state = SessionAnnounced
	return true, nil
}

// Identity returns the announced identity, or ErrNotAnnounced.
func (s *Session) Identity() (domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case SessionAnnounced:
		return s.identity, nil
	case SessionClosed:
		return "", domain.ErrSessionClosed
	}
	return "", domain.ErrNotAnnounced
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close moves the session to Closed and removes its registry entry if it is
// still the current one for the identity. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionAnnounced {
		s.registry.Unregister(s.identity, s.client)
	}
	s.state = SessionClosed
}

// Client returns the connection handle the session owns.
func (s *Session) Client() contracts.Client { return s.client }
