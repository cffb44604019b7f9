package domain

import (
	"encoding/json"
	"time"
)

// EventKind names an outbound relay event on the wire.
type EventKind string

const (
	EventNewMessage            EventKind = "new-message"
	EventMessageSent           EventKind = "message-sent"
	EventTyping                EventKind = "user-typing"
	EventFriendRequestCreated  EventKind = "new-friend-request"
	EventFriendRequestResolved EventKind = "friend-request-updated"
	EventChatListInvalidated   EventKind = "chat-updated"
	// PresenceChanged is carried under two wire names.
	EventUserOnline  EventKind = "user-online"
	EventUserOffline EventKind = "user-offline"

	EventJoined EventKind = "joined"
	EventError  EventKind = "error"
)

// Inbound frame types sent by clients.
const (
	FrameJoin            = "join"
	FrameTyping          = "typing"
	FrameSendMessage     = "send-message"
	FrameFriendRequest   = "friend-request-sent"
	FrameFriendResponded = "friend-request-responded"
	FrameMessageStatus   = "message-status"
)

// RelayEvent is an ephemeral hint pointing at authoritative state. It is never
// persisted. A broadcast event has no Target and skips Origin.
type RelayEvent struct {
	Kind      EventKind
	Target    UserID
	Broadcast bool
	Origin    UserID
	Payload   any
}

// Envelope is the JSON frame written to a connection.
type Envelope struct {
	Type    EventKind `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// Encode renders the event as a wire frame.
func (e RelayEvent) Encode() ([]byte, error) {
	return json.Marshal(Envelope{Type: e.Kind, Payload: e.Payload})
}

// MessagePayload accompanies new-message and message-sent.
type MessagePayload struct {
	ChatID  string  `json:"chatId"`
	Message Message `json:"message"`
}

// TypingPayload accompanies user-typing.
type TypingPayload struct {
	ChatID   string `json:"chatId"`
	UserID   UserID `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ChatUpdatedPayload accompanies chat-updated.
type ChatUpdatedPayload struct {
	ChatID string `json:"chatId"`
}

// PresencePayload accompanies user-online and user-offline.
type PresencePayload struct {
	UserID   UserID    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	At       time.Time `json:"at"`
}

// JoinedPayload acknowledges a join frame.
type JoinedPayload struct {
	UserID UserID `json:"userId"`
}

// ErrorMessage is WS-safe error
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Frame is an inbound client message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinFrame struct {
	UserID UserID `json:"userId"`
}

type TypingFrame struct {
	ChatID     string `json:"chatId"`
	ReceiverID UserID `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

type SendMessageFrame struct {
	ChatID  string      `json:"chatId"`
	Content string      `json:"content"`
	Type    MessageType `json:"type"`
}

type FriendRequestFrame struct {
	ToUserID UserID `json:"toUserId"`
}

type FriendRespondedFrame struct {
	RequestID string              `json:"requestId"`
	Status    FriendRequestStatus `json:"status"`
}

type MessageStatusFrame struct {
	ChatID    string        `json:"chatId"`
	MessageID string        `json:"messageId"`
	Status    MessageStatus `json:"status"`
}

// FriendRequestPayload accompanies new-friend-request and
// friend-request-updated. ChatID is set once an accepted request has a chat.
type FriendRequestPayload struct {
	FriendRequest
	ChatID string `json:"chatId,omitempty"`
}
