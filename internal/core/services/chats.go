package services

import (
	"context"
	"log/slog"

	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
	"duochat/pkg/logging"
)

// ChatView is a chat as seen by one of its participants.
type ChatView struct {
	domain.Chat
	OtherParticipant *domain.UserSummary `json:"otherParticipant,omitempty"`
	UnreadCount      int                 `json:"unreadCount"`
}

type ChatService struct {
	log   *slog.Logger
	repo  domain.ChatRepository
	users *UserService
	relay contracts.Publisher
	// broadcastUpdates sends chat-updated to every connection rather than
	// only the two participants.
	broadcastUpdates bool
}

func NewChatService(
	log *slog.Logger,
	repo domain.ChatRepository,
	users *UserService,
	relay contracts.Publisher,
	broadcastUpdates bool,
) *ChatService {
	return &ChatService{
		log:              log,
		repo:             repo,
		users:            users,
		relay:            relay,
		broadcastUpdates: broadcastUpdates,
	}
}

// ListChats returns the caller's chats, most recently active first.
func (s *ChatService) ListChats(ctx context.Context, caller domain.UserID) ([]ChatView, error) {
	chats, err := s.repo.FindChatsForUser(ctx, caller)
	if err != nil {
		s.log.ErrorContext(ctx, "chats - list - query failed", logging.User(caller.String()), logging.Err(err))
		return nil, err
	}
	others := make([]domain.UserID, 0, len(chats))
	for i := range chats {
		if o, ok := chats[i].Other(caller); ok {
			others = append(others, o)
		}
	}
	summaries, err := s.users.Summaries(ctx, others)
	if err != nil {
		return nil, err
	}
	out := make([]ChatView, 0, len(chats))
	for i := range chats {
		out = append(out, view(&chats[i], caller, summaries))
	}
	return out, nil
}

// GetChat returns one chat. Callers outside the chat get ErrChatNotFound.
func (s *ChatService) GetChat(ctx context.Context, caller domain.UserID, chatID string) (*ChatView, error) {
	chat, err := s.participantChat(ctx, caller, chatID)
	if err != nil {
		return nil, err
	}
	other, _ := chat.Other(caller)
	summaries, err := s.users.Summaries(ctx, []domain.UserID{other})
	if err != nil {
		return nil, err
	}
	v := view(chat, caller, summaries)
	return &v, nil
}

func (s *ChatService) participantChat(ctx context.Context, caller domain.UserID, chatID string) (*domain.Chat, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(caller) {
		return nil, domain.ErrChatNotFound
	}
	return chat, nil
}

func view(c *domain.Chat, caller domain.UserID, summaries map[domain.UserID]domain.UserSummary) ChatView {
	v := ChatView{Chat: *c, UnreadCount: c.UnreadFor(caller)}
	if v.Messages == nil {
		v.Messages = []domain.Message{}
	}
	if o, ok := c.Other(caller); ok {
		if sum, ok := summaries[o]; ok {
			v.OtherParticipant = &sum
		}
	}
	return v
}
