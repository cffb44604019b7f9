package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserID is the stable identity of a registered account. It keys the connection registry.
type UserID string

func (id UserID) String() string { return string(id) }

// NewUserID allocates a fresh identity. Identities are never reused.
func NewUserID() UserID {
	return UserID(uuid.NewString())
}

// User represents the registered account, identified by its phone number.
type User struct {
	ID           UserID    `json:"id"`
	PhoneNumber  string    `json:"phoneNumber"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profileImage"`
	SessionID    string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the public view of a user enriched with live presence.
type UserSummary struct {
	ID           UserID     `json:"id"`
	PhoneNumber  string     `json:"phoneNumber"`
	Name         string     `json:"name"`
	ProfileImage string     `json:"profileImage"`
	IsOnline     bool       `json:"isOnline"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
}

type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
)

// Rank orders statuses; a message never moves to a lower rank.
func (s MessageStatus) Rank() int {
	switch s {
	case MessageSent:
		return 0
	case MessageDelivered:
		return 1
	case MessageRead:
		return 2
	}
	return -1
}

func (s MessageStatus) Valid() bool { return s.Rank() >= 0 }

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile:
		return true
	}
	return false
}

// Message is a persisted chat entry. Messages in a chat are ordered by CreatedAt.
type Message struct {
	ID         string        `json:"id"`
	ChatID     string        `json:"chatId"`
	SenderID   UserID        `json:"senderId"`
	ReceiverID UserID        `json:"receiverId"`
	Content    string        `json:"content"`
	Status     MessageStatus `json:"status"`
	Type       MessageType   `json:"type"`
	CreatedAt  time.Time     `json:"timestamp"`
}

// Chat is the durable conversation between exactly two participants.
type Chat struct {
	ID              string    `json:"id"`
	Participants    [2]UserID `json:"participants"`
	Messages        []Message `json:"messages"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	CreatedAt       time.Time `json:"createdAt"`
}

// HasParticipant reports whether id takes part in the chat.
func (c *Chat) HasParticipant(id UserID) bool {
	return c.Participants[0] == id || c.Participants[1] == id
}

// Other returns the participant that is not id.
func (c *Chat) Other(id UserID) (UserID, bool) {
	switch id {
	case c.Participants[0]:
		return c.Participants[1], true
	case c.Participants[1]:
		return c.Participants[0], true
	}
	return "", false
}

// UnreadFor counts messages addressed to id that have not been read yet.
func (c *Chat) UnreadFor(id UserID) int {
	n := 0
	for _, m := range c.Messages {
		if m.ReceiverID == id && m.Status != MessageRead {
			n++
		}
	}
	return n
}

// OrderedPair returns the two identities in a canonical order so an unordered
// pair has exactly one key.
func OrderedPair(a, b UserID) (UserID, UserID) {
	if b < a {
		return b, a
	}
	return a, b
}

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// Resolution reports whether s is a terminal status a recipient may choose.
func (s FriendRequestStatus) Resolution() bool {
	return s == FriendRequestAccepted || s == FriendRequestDeclined
}

// FriendRequest is the persisted request between an ordered pair. At most one
// exists per unordered pair regardless of direction.
type FriendRequest struct {
	ID         string              `json:"id"`
	FromUserID UserID              `json:"fromUserId"`
	ToUserID   UserID              `json:"toUserId"`
	Status     FriendRequestStatus `json:"status"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// Involves reports whether id is either side of the request.
func (r *FriendRequest) Involves(id UserID) bool {
	return r.FromUserID == id || r.ToUserID == id
}

// PresenceChange is a single online/offline transition of an identity.
type PresenceChange struct {
	UserID UserID
	Online bool
	At     time.Time
}
