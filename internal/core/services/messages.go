package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"duochat/internal/core/domain"
	"duochat/pkg/logging"
)

// SendMessage persists a message and, once the write is acknowledged, relays
// it: new-message to the receiver, message-sent to the sender, then
// chat-updated.
func (s *ChatService) SendMessage(
	ctx context.Context,
	sender domain.UserID,
	chatID string,
	content string,
	typ domain.MessageType,
) (*domain.Message, *domain.Chat, error) {
	ctx, span := tracer.Start(ctx, "ChatService.SendMessage", trace.WithAttributes(
		attribute.String("sender_id", sender.String()),
		attribute.String("chat_id", chatID),
	))
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return nil, nil, fmt.Errorf("%w: message content is required", domain.ErrValidation)
	}
	if typ == "" {
		typ = domain.MessageText
	}
	if !typ.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown message type %q", domain.ErrValidation, typ)
	}
	chat, err := s.participantChat(ctx, sender, chatID)
	if err != nil {
		return nil, nil, err
	}
	msg, err := s.repo.CreateMessage(ctx, chatID, sender, content, typ)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.log.ErrorContext(ctx, "messages - send - persist failed", logging.Chat(chatID), logging.User(sender.String()), logging.Err(err))
		return nil, nil, err
	}
	// The message is durable from here on, so it is relayed even without a
	// fresh chat.
	if fresh, err := s.repo.GetChat(ctx, chatID); err == nil {
		chat = fresh
	} else {
		s.log.WarnContext(ctx, "messages - send - reload chat failed", logging.Chat(chatID), logging.Err(err))
		chat.Messages = append(chat.Messages, *msg)
		chat.LastMessage = msg.Content
		chat.LastMessageTime = msg.CreatedAt
	}
	span.SetAttributes(attribute.String("message_id", msg.ID))
	s.log.InfoContext(ctx, "messages - send - persisted", logging.Chat(chatID), logging.Message(msg.ID), logging.User(sender.String()))

	payload := domain.MessagePayload{ChatID: chatID, Message: *msg}
	s.relay.Publish(ctx, domain.RelayEvent{
		Kind:    domain.EventNewMessage,
		Target:  msg.ReceiverID,
		Origin:  sender,
		Payload: payload,
	})
	s.relay.Publish(ctx, domain.RelayEvent{
		Kind:    domain.EventMessageSent,
		Target:  sender,
		Origin:  sender,
		Payload: payload,
	})
	s.invalidateChatList(ctx, chat, sender)
	return msg, chat, nil
}

func (s *ChatService) invalidateChatList(ctx context.Context, chat *domain.Chat, origin domain.UserID) {
	payload := domain.ChatUpdatedPayload{ChatID: chat.ID}
	if s.broadcastUpdates {
		s.relay.Publish(ctx, domain.RelayEvent{
			Kind:      domain.EventChatListInvalidated,
			Broadcast: true,
			Origin:    origin,
			Payload:   payload,
		})
		return
	}
	for _, p := range chat.Participants {
		s.relay.Publish(ctx, domain.RelayEvent{
			Kind:    domain.EventChatListInvalidated,
			Target:  p,
			Origin:  origin,
			Payload: payload,
		})
	}
}

// UpdateStatus advances a message's delivery status. Only the receiver may do
// so, and a status never moves backwards. The sender is told to re-read the
// chat when the status changed.
func (s *ChatService) UpdateStatus(
	ctx context.Context,
	caller domain.UserID,
	chatID, messageID string,
	status domain.MessageStatus,
) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "ChatService.UpdateStatus", trace.WithAttributes(
		attribute.String("user_id", caller.String()),
		attribute.String("chat_id", chatID),
		attribute.String("message_id", messageID),
		attribute.String("status", string(status)),
	))
	defer span.End()

	if status != domain.MessageDelivered && status != domain.MessageRead {
		return nil, fmt.Errorf("%w: status must be delivered or read", domain.ErrValidation)
	}
	if _, err := s.participantChat(ctx, caller, chatID); err != nil {
		return nil, err
	}
	prev, err := s.repo.GetMessage(ctx, chatID, messageID)
	if err != nil {
		return nil, err
	}
	if prev.ReceiverID != caller {
		return nil, domain.ErrForbidden
	}
	msg, err := s.repo.UpdateMessageStatus(ctx, chatID, messageID, status)
	if err != nil {
		if !errors.Is(err, domain.ErrMessageNotFound) {
			span.RecordError(err)
			s.log.ErrorContext(ctx, "messages - update status - persist failed", logging.Message(messageID), logging.Err(err))
		}
		return nil, err
	}
	if msg.Status == prev.Status {
		return msg, nil
	}
	s.log.InfoContext(ctx, "messages - update status - success", logging.Message(messageID), logging.Chat(chatID), slog.String("status", string(msg.Status)))
	s.relay.Publish(ctx, domain.RelayEvent{
		Kind:    domain.EventChatListInvalidated,
		Target:  msg.SenderID,
		Origin:  caller,
		Payload: domain.ChatUpdatedPayload{ChatID: chatID},
	})
	return msg, nil
}

// Typing relays an ephemeral typing signal to the chat's other participant.
// Nothing is persisted.
func (s *ChatService) Typing(ctx context.Context, caller domain.UserID, in domain.TypingFrame) error {
	chat, err := s.participantChat(ctx, caller, in.ChatID)
	if err != nil {
		return err
	}
	other, _ := chat.Other(caller)
	if in.ReceiverID != "" && in.ReceiverID != other {
		return fmt.Errorf("%w: receiver is not part of this chat", domain.ErrForbidden)
	}
	s.relay.Publish(ctx, domain.RelayEvent{
		Kind:   domain.EventTyping,
		Target: other,
		Origin: caller,
		Payload: domain.TypingPayload{
			ChatID:   chat.ID,
			UserID:   caller,
			IsTyping: in.IsTyping,
		},
	})
	return nil
}
