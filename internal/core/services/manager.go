package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"duochat/internal/core/domain"
	"duochat/pkg/logging"
)

var tracer = otel.Tracer("manager-service")

// Error codes carried by error frames.
const (
	CodeNotAnnounced     = "not_announced"
	CodeIdentityMismatch = "identity_mismatch"
	CodeBadFrame         = "bad_frame"
	CodeUnknownFrame     = "unknown_frame"
	CodeValidation       = "validation"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeClosed           = "closed"
	CodeInternal         = "internal"
)

// ManagerService runs inbound socket frames through the same services as the
// REST surface. Every failure is answered with an error frame on the
// originating connection; none of them end the connection.
type ManagerService struct {
	log     *slog.Logger
	chats   *ChatService
	friends *FriendService
}

func NewManagerService(log *slog.Logger, chats *ChatService, friends *FriendService) *ManagerService {
	return &ManagerService{
		log:     log,
		chats:   chats,
		friends: friends,
	}
}

// HandleMessage processes one inbound frame for sess.
func (c *ManagerService) HandleMessage(ctx context.Context, sess *Session, raw []byte) {
	var f domain.Frame
	if err := json.Unmarshal(raw, &f); err != nil || f.Type == "" {
		c.reply(ctx, sess, errorEvent(CodeBadFrame, "frame must be a JSON object with a type"))
		return
	}
	ctx, span := tracer.Start(ctx, "ManagerService.HandleMessage", trace.WithAttributes(
		attribute.String("frame.type", f.Type),
		attribute.String("conn_id", sess.Client().ConnID()),
		attribute.Int("payload_size", len(raw)),
	))
	defer span.End()

	// Fields may be nested under "payload" or sit beside "type".
	body := []byte(f.Payload)
	if len(body) == 0 || string(body) == "null" {
		body = raw
	}
	if err := c.dispatch(ctx, sess, f.Type, body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "frame rejected")
		code, msg := errorCode(err)
		if code == CodeInternal {
			c.log.ErrorContext(ctx, "manager - handle message - failed", slog.String("frame", f.Type), logging.Conn(sess.Client().ConnID()), logging.Err(err))
		} else {
			c.log.DebugContext(ctx, "manager - handle message - rejected", slog.String("frame", f.Type), slog.String("code", code), logging.Err(err))
		}
		c.reply(ctx, sess, errorEvent(code, msg))
	}
}

func (c *ManagerService) dispatch(ctx context.Context, sess *Session, typ string, body []byte) error {
	if typ == domain.FrameJoin {
		var in domain.JoinFrame
		if err := decode(body, &in); err != nil {
			return err
		}
		first, err := sess.Announce(in.UserID)
		if err != nil {
			return err
		}
		if first {
			c.log.InfoContext(ctx, "manager - join - announced", logging.User(in.UserID.String()), logging.Conn(sess.Client().ConnID()))
		}
		c.reply(ctx, sess, domain.RelayEvent{Kind: domain.EventJoined, Payload: domain.JoinedPayload{UserID: in.UserID}})
		return nil
	}

	caller, err := sess.Identity()
	if err != nil {
		return err
	}
	switch typ {
	case domain.FrameTyping:
		var in domain.TypingFrame
		if err := decode(body, &in); err != nil {
			return err
		}
		return c.chats.Typing(ctx, caller, in)
	case domain.FrameSendMessage:
		var in domain.SendMessageFrame
		if err := decode(body, &in); err != nil {
			return err
		}
		// A flat frame shares its "type" key with the message type.
		if string(in.Type) == typ {
			in.Type = ""
		}
		_, _, err := c.chats.SendMessage(ctx, caller, in.ChatID, in.Content, in.Type)
		return err
	case domain.FrameFriendRequest:
		var in domain.FriendRequestFrame
		if err := decode(body, &in); err != nil {
			return err
		}
		_, err := c.friends.Send(ctx, caller, in.ToUserID)
		return err
	case domain.FrameFriendResponded:
		var in domain.FriendRespondedFrame
		if err := decode(body, &in); err != nil {
			return err
		}
		_, err := c.friends.Resolve(ctx, caller, in.RequestID, in.Status)
		return err
	case domain.FrameMessageStatus:
		var in domain.MessageStatusFrame
		if err := decode(body, &in); err != nil {
			return err
		}
		_, err := c.chats.UpdateStatus(ctx, caller, in.ChatID, in.MessageID, in.Status)
		return err
	}
	return fmt.Errorf("%w: %s", domain.ErrUnknownFrame, typ)
}

// HandleDisconnect closes the session, releasing its registry entry.
func (c *ManagerService) HandleDisconnect(ctx context.Context, sess *Session) {
	id, err := sess.Identity()
	sess.Close()
	if err == nil {
		c.log.InfoContext(ctx, "manager - handle disconnect - closed", logging.User(id.String()), logging.Conn(sess.Client().ConnID()))
	}
}

func (c *ManagerService) reply(ctx context.Context, sess *Session, ev domain.RelayEvent) {
	data, err := ev.Encode()
	if err != nil {
		c.log.ErrorContext(ctx, "manager - reply - encode failed", logging.Event(string(ev.Kind)), logging.Err(err))
		return
	}
	if err := sess.Client().Send(data); err != nil {
		c.log.DebugContext(ctx, "manager - reply - dropped", logging.Event(string(ev.Kind)), logging.Err(err))
	}
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return errBadFrame{err}
	}
	return nil
}

type errBadFrame struct{ err error }

func (e errBadFrame) Error() string { return "malformed frame: " + e.err.Error() }
func (e errBadFrame) Unwrap() error { return e.err }

func errorEvent(code, msg string) domain.RelayEvent {
	return domain.RelayEvent{Kind: domain.EventError, Payload: domain.ErrorMessage{Code: code, Message: msg}}
}

func errorCode(err error) (string, string) {
	var bad errBadFrame
	switch {
	case errors.As(err, &bad):
		return CodeBadFrame, bad.Error()
	case errors.Is(err, domain.ErrNotAnnounced):
		return CodeNotAnnounced, "send a join frame first"
	case errors.Is(err, domain.ErrIdentityMismatch):
		return CodeIdentityMismatch, err.Error()
	case errors.Is(err, domain.ErrSessionClosed):
		return CodeClosed, err.Error()
	case errors.Is(err, domain.ErrUnknownFrame):
		return CodeUnknownFrame, err.Error()
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidUserID):
		return CodeValidation, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden, err.Error()
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrChatNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrFriendRequestNotFound):
		return CodeNotFound, err.Error()
	case errors.Is(err, domain.ErrFriendRequestExists), errors.Is(err, domain.ErrInvalidTransition):
		return CodeConflict, err.Error()
	}
	return CodeInternal, "internal error"
}
