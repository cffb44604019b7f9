package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"duochat/internal/core/domain"
)

const (
	messageColumns  = `id, chat_id, sender_id, receiver_id, content, status, type, created_at`
	messageColumnsM = `m.id, m.chat_id, m.sender_id, m.receiver_id, m.content, m.status, m.type, m.created_at`
)

// statusRank mirrors domain.MessageStatus.Rank in SQL.
const statusRank = `CASE status WHEN 'sent' THEN 0 WHEN 'delivered' THEN 1 WHEN 'read' THEN 2 END`

func scanMessage(row interface{ Scan(...any) error }) (domain.Message, error) {
	var m domain.Message
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Status, &m.Type, &m.CreatedAt)
	return m, err
}

func (r *ChatRepo) messages(ctx context.Context, chatID string) ([]domain.Message, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at, id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateMessage inserts the message and moves the chat's last message in one
// transaction.
func (r *ChatRepo) CreateMessage(
	ctx context.Context,
	chatID string,
	senderID domain.UserID,
	content string,
	typ domain.MessageType,
) (*domain.Message, error) {
	if uuid.Validate(chatID) != nil {
		return nil, domain.ErrChatNotFound
	}
	var msg domain.Message
	err := inTx(ctx, r.db, func(txCtx context.Context) error {
		exec := GetExecutor(txCtx, r.db)
		var a, b domain.UserID
		// Lock the chat row so concurrent sends serialize their last-message update.
		err := exec.QueryRowContext(txCtx, `
			SELECT participant_a, participant_b FROM chats WHERE id = $1 FOR UPDATE`, chatID,
		).Scan(&a, &b)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrChatNotFound
		}
		if err != nil {
			return err
		}
		chat := domain.Chat{Participants: [2]domain.UserID{a, b}}
		receiver, ok := chat.Other(senderID)
		if !ok {
			return domain.ErrForbidden
		}
		msg, err = scanMessage(exec.QueryRowContext(txCtx, `
			INSERT INTO messages (id, chat_id, sender_id, receiver_id, content, status, type)
			VALUES ($1, $2, $3, $4, $5, 'sent', $6)
			RETURNING `+messageColumns,
			uuid.New(), chatID, senderID, receiver, content, typ,
		))
		if err != nil {
			return err
		}
		_, err = exec.ExecContext(txCtx, `
			UPDATE chats SET last_message = $2, last_message_time = $3 WHERE id = $1`,
			chatID, content, msg.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateMessageStatus only ever raises the status rank.
func (r *ChatRepo) UpdateMessageStatus(
	ctx context.Context,
	chatID, messageID string,
	status domain.MessageStatus,
) (*domain.Message, error) {
	if !status.Valid() {
		return nil, domain.ErrValidation
	}
	if uuid.Validate(chatID) != nil || uuid.Validate(messageID) != nil {
		return nil, domain.ErrMessageNotFound
	}
	exec := GetExecutor(ctx, r.db)
	m, err := scanMessage(exec.QueryRowContext(ctx, `
		UPDATE messages SET status = $3
		WHERE chat_id = $1 AND id = $2 AND `+statusRank+` < $4
		RETURNING `+messageColumns,
		chatID, messageID, status, status.Rank(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return r.GetMessage(ctx, chatID, messageID)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ChatRepo) GetMessage(ctx context.Context, chatID, messageID string) (*domain.Message, error) {
	if uuid.Validate(chatID) != nil || uuid.Validate(messageID) != nil {
		return nil, domain.ErrMessageNotFound
	}
	exec := GetExecutor(ctx, r.db)
	m, err := scanMessage(exec.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 AND id = $2`, chatID, messageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}
