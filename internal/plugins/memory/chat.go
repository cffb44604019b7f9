package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"duochat/internal/core/domain"
)

type pairKey struct{ a, b domain.UserID }

func keyOf(x, y domain.UserID) pairKey {
	a, b := domain.OrderedPair(x, y)
	return pairKey{a, b}
}

type ChatRepo struct {
	mu     sync.RWMutex
	chats  map[string]*domain.Chat
	byPair map[pairKey]string
	nowFn  func() time.Time
}

func NewChatRepository() *ChatRepo {
	return &ChatRepo{
		chats:  make(map[string]*domain.Chat),
		byPair: make(map[pairKey]string),
		nowFn:  time.Now,
	}
}

func (r *ChatRepo) FindOrCreateChat(_ context.Context, x, y domain.UserID) (*domain.Chat, error) {
	if x == "" || y == "" || x == y {
		return nil, domain.ErrInvalidUserID
	}
	k := keyOf(x, y)
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPair[k]; ok {
		return cloneChat(r.chats[id]), nil
	}
	now := r.nowFn().UTC()
	c := &domain.Chat{
		ID:              uuid.NewString(),
		Participants:    [2]domain.UserID{k.a, k.b},
		LastMessageTime: now,
		CreatedAt:       now,
	}
	r.chats[c.ID] = c
	r.byPair[k] = c.ID
	return cloneChat(c), nil
}

func (r *ChatRepo) GetChat(_ context.Context, chatID string) (*domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chats[chatID]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	return cloneChat(c), nil
}

func (r *ChatRepo) FindChatsForUser(_ context.Context, userID domain.UserID) ([]domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Chat
	for _, c := range r.chats {
		if c.HasParticipant(userID) {
			out = append(out, *cloneChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTime.After(out[j].LastMessageTime) })
	return out, nil
}

func (r *ChatRepo) CreateMessage(_ context.Context, chatID string, senderID domain.UserID, content string, typ domain.MessageType) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	receiver, ok := c.Other(senderID)
	if !ok {
		return nil, domain.ErrForbidden
	}
	now := r.nowFn().UTC()
	// Creation times within a chat are strictly increasing so ordering is total.
	if n := len(c.Messages); n > 0 && !now.After(c.Messages[n-1].CreatedAt) {
		now = c.Messages[n-1].CreatedAt.Add(time.Microsecond)
	}
	m := domain.Message{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		SenderID:   senderID,
		ReceiverID: receiver,
		Content:    content,
		Status:     domain.MessageSent,
		Type:       typ,
		CreatedAt:  now,
	}
	c.Messages = append(c.Messages, m)
	c.LastMessage = content
	c.LastMessageTime = now
	return &m, nil
}

func (r *ChatRepo) UpdateMessageStatus(_ context.Context, chatID, messageID string, status domain.MessageStatus) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.messageLocked(chatID, messageID)
	if err != nil {
		return nil, err
	}
	if status.Rank() > m.Status.Rank() {
		m.Status = status
	}
	out := *m
	return &out, nil
}

func (r *ChatRepo) GetMessage(_ context.Context, chatID, messageID string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, err := r.messageLocked(chatID, messageID)
	if err != nil {
		return nil, err
	}
	out := *m
	return &out, nil
}

func (r *ChatRepo) messageLocked(chatID, messageID string) (*domain.Message, error) {
	c, ok := r.chats[chatID]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			return &c.Messages[i], nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func cloneChat(c *domain.Chat) *domain.Chat {
	out := *c
	out.Messages = append([]domain.Message(nil), c.Messages...)
	return &out
}
