package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
	"duochat/pkg/logging"
)

// FriendRequestView is a friend request with both parties resolved.
type FriendRequestView struct {
	domain.FriendRequest
	FromUser *domain.UserSummary `json:"fromUser,omitempty"`
	ToUser   *domain.UserSummary `json:"toUser,omitempty"`
}

type FriendService struct {
	log       *slog.Logger
	repo      domain.FriendRequestRepository
	chats     domain.ChatRepository
	users     domain.UserRepository
	txManager Transactor
	relay     contracts.Publisher
}

func NewFriendService(
	log *slog.Logger,
	repo domain.FriendRequestRepository,
	chats domain.ChatRepository,
	users domain.UserRepository,
	txManager Transactor,
	relay contracts.Publisher,
) *FriendService {
	return &FriendService{
		log:       log,
		repo:      repo,
		chats:     chats,
		users:     users,
		txManager: txManager,
		relay:     relay,
	}
}

// Send creates a pending request and notifies the recipient if connected.
func (s *FriendService) Send(ctx context.Context, from, to domain.UserID) (*domain.FriendRequest, error) {
	ctx, span := tracer.Start(ctx, "FriendService.Send", trace.WithAttributes(
		attribute.String("from_user_id", from.String()),
		attribute.String("to_user_id", to.String()),
	))
	defer span.End()
	if to == "" {
		return nil, fmt.Errorf("%w: toUserId is required", domain.ErrValidation)
	}
	if from == to {
		return nil, fmt.Errorf("%w: cannot send friend request to yourself", domain.ErrValidation)
	}
	if _, err := s.users.GetUserByID(ctx, to); err != nil {
		return nil, err
	}
	req, err := s.repo.CreateFriendRequest(ctx, from, to)
	if err != nil {
		if !errors.Is(err, domain.ErrFriendRequestExists) {
			span.RecordError(err)
			s.log.ErrorContext(ctx, "friends - send - create failed", logging.User(from.String()), logging.Err(err))
		}
		return nil, err
	}
	s.log.InfoContext(ctx, "friends - send - created", logging.FriendRequest(req.ID), logging.User(from.String()))
	s.relay.Publish(ctx, domain.RelayEvent{
		Kind:    domain.EventFriendRequestCreated,
		Target:  to,
		Origin:  from,
		Payload: domain.FriendRequestPayload{FriendRequest: *req},
	})
	return req, nil
}

// Resolve lets the recipient accept or decline a pending request. Accepting
// creates the pair's chat in the same unit of work. The requester is notified
// only when the status actually changed.
func (s *FriendService) Resolve(
	ctx context.Context,
	caller domain.UserID,
	requestID string,
	status domain.FriendRequestStatus,
) (*domain.FriendRequest, error) {
	ctx, span := tracer.Start(ctx, "FriendService.Resolve", trace.WithAttributes(
		attribute.String("user_id", caller.String()),
		attribute.String("friend_request_id", requestID),
		attribute.String("status", string(status)),
	))
	defer span.End()
	if !status.Resolution() {
		return nil, fmt.Errorf("%w: invalid status", domain.ErrValidation)
	}
	var (
		req     *domain.FriendRequest
		changed bool
		chatID  string
	)
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		cur, err := s.repo.GetFriendRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if cur.ToUserID != caller {
			return domain.ErrForbidden
		}
		if req, changed, err = s.repo.ResolveFriendRequest(txCtx, requestID, status); err != nil {
			return err
		}
		if req.Status != domain.FriendRequestAccepted {
			return nil
		}
		chat, err := s.chats.FindOrCreateChat(txCtx, req.FromUserID, req.ToUserID)
		if err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		chatID = chat.ID
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		s.log.WarnContext(ctx, "friends - resolve - failed", logging.FriendRequest(requestID), logging.User(caller.String()), logging.Err(err))
		return nil, err
	}
	if !changed {
		s.log.DebugContext(ctx, "friends - resolve - already resolved", logging.FriendRequest(requestID))
		return req, nil
	}
	s.log.InfoContext(ctx, "friends - resolve - success", logging.FriendRequest(req.ID), slog.String("status", string(req.Status)), logging.Chat(chatID))
	s.relay.Publish(ctx, domain.RelayEvent{
		Kind:    domain.EventFriendRequestResolved,
		Target:  req.FromUserID,
		Origin:  caller,
		Payload: domain.FriendRequestPayload{FriendRequest: *req, ChatID: chatID},
	})
	return req, nil
}

func (s *FriendService) List(ctx context.Context, userID domain.UserID) ([]domain.FriendRequest, error) {
	return s.repo.ListFriendRequests(ctx, userID)
}

func (s *FriendService) Pending(ctx context.Context, userID domain.UserID) ([]domain.FriendRequest, error) {
	return s.repo.ListPendingFor(ctx, userID)
}
