package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"duochat/internal/core/domain"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

const chatColumns = `id, participant_a, participant_b, last_message, last_message_time, created_at`

func scanChat(row interface{ Scan(...any) error }) (domain.Chat, error) {
	var c domain.Chat
	err := row.Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.LastMessage, &c.LastMessageTime, &c.CreatedAt)
	return c, err
}

// FindOrCreateChat relies on the unique ordered pair: a concurrent insert for
// the same pair waits on the index and then does nothing.
func (r *ChatRepo) FindOrCreateChat(ctx context.Context, x, y domain.UserID) (*domain.Chat, error) {
	if x == "" || y == "" || x == y {
		return nil, domain.ErrInvalidUserID
	}
	a, b := domain.OrderedPair(x, y)
	exec := GetExecutor(ctx, r.db)
	if _, err := exec.ExecContext(ctx, `
		INSERT INTO chats (id, participant_a, participant_b)
		VALUES ($1, $2, $3)
		ON CONFLICT (participant_a, participant_b) DO NOTHING`,
		uuid.New(), a, b,
	); err != nil {
		return nil, err
	}
	c, err := scanChat(exec.QueryRowContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE participant_a = $1 AND participant_b = $2`, a, b))
	if err != nil {
		return nil, err
	}
	if c.Messages, err = r.messages(ctx, c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	if uuid.Validate(chatID) != nil {
		return nil, domain.ErrChatNotFound
	}
	exec := GetExecutor(ctx, r.db)
	c, err := scanChat(exec.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, chatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	if c.Messages, err = r.messages(ctx, c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepo) FindChatsForUser(ctx context.Context, userID domain.UserID) ([]domain.Chat, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY last_message_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	var chats []domain.Chat
	index := make(map[string]int)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[c.ID] = len(chats)
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(chats) == 0 {
		return chats, nil
	}

	mrows, err := exec.QueryContext(ctx, `
		SELECT `+messageColumnsM+`
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE c.participant_a = $1 OR c.participant_b = $1
		ORDER BY m.created_at, m.id`, userID)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		m, err := scanMessage(mrows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[m.ChatID]; ok {
			chats[i].Messages = append(chats[i].Messages, m)
		}
	}
	return chats, mrows.Err()
}
