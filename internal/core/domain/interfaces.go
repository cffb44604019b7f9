package domain

import (
	"context"
)

// UserRepository handles the persistent identity
type UserRepository interface {
	// CreateUser fails with ErrUserExists when the phone number is taken.
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id UserID) (*User, error)
	// ListUsers returns every user except the given one.
	ListUsers(ctx context.Context, except UserID) ([]User, error)
	GetUsersByIDs(ctx context.Context, ids []UserID) (map[UserID]User, error)
}

// ChatRepository is the persistence gateway for chats and message history.
type ChatRepository interface {
	// FindOrCreateChat returns the single chat of the unordered pair, creating it
	// on first use. Safe under concurrent calls for the same pair.
	FindOrCreateChat(ctx context.Context, a, b UserID) (*Chat, error)
	GetChat(ctx context.Context, chatID string) (*Chat, error)
	// FindChatsForUser orders chats by LastMessageTime, newest first.
	FindChatsForUser(ctx context.Context, userID UserID) ([]Chat, error)
	// CreateMessage appends a message with status sent, addressed to the other
	// participant, and updates the chat's last message in the same write.
	CreateMessage(ctx context.Context, chatID string, senderID UserID, content string, typ MessageType) (*Message, error)
	// UpdateMessageStatus advances the status; lower ranks are ignored.
	UpdateMessageStatus(ctx context.Context, chatID, messageID string, status MessageStatus) (*Message, error)
	GetMessage(ctx context.Context, chatID, messageID string) (*Message, error)
}

// FriendRequestRepository is the friend graph gateway.
type FriendRequestRepository interface {
	// CreateFriendRequest fails with ErrFriendRequestExists when the unordered
	// pair already has a request in any state.
	CreateFriendRequest(ctx context.Context, from, to UserID) (*FriendRequest, error)
	GetFriendRequest(ctx context.Context, id string) (*FriendRequest, error)
	// ResolveFriendRequest moves a pending request to status. changed is false
	// when the request already had that status; any other resolved state yields
	// ErrInvalidTransition.
	ResolveFriendRequest(ctx context.Context, id string, status FriendRequestStatus) (req *FriendRequest, changed bool, err error)
	// ListFriendRequests returns requests where userID is either side, newest first.
	ListFriendRequests(ctx context.Context, userID UserID) ([]FriendRequest, error)
	// ListPendingFor returns pending requests addressed to userID, newest first.
	ListPendingFor(ctx context.Context, userID UserID) ([]FriendRequest, error)
}
