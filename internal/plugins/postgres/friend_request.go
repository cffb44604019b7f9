package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"duochat/internal/core/domain"
)

type FriendRequestRepo struct {
	db *sql.DB
}

func NewFriendRequestRepo(db *sql.DB) *FriendRequestRepo {
	return &FriendRequestRepo{db: db}
}

const friendRequestColumns = `id, from_user_id, to_user_id, status, created_at, updated_at`

func scanFriendRequest(row interface{ Scan(...any) error }) (domain.FriendRequest, error) {
	var fr domain.FriendRequest
	err := row.Scan(&fr.ID, &fr.FromUserID, &fr.ToUserID, &fr.Status, &fr.CreatedAt, &fr.UpdatedAt)
	return fr, err
}

func (r *FriendRequestRepo) CreateFriendRequest(ctx context.Context, from, to domain.UserID) (*domain.FriendRequest, error) {
	low, high := domain.OrderedPair(from, to)
	exec := GetExecutor(ctx, r.db)
	fr, err := scanFriendRequest(exec.QueryRowContext(ctx, `
		INSERT INTO friend_requests (id, from_user_id, to_user_id, status, pair_low, pair_high)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING `+friendRequestColumns,
		uuid.New(), from, to, low, high,
	))
	if err != nil {
		if isUniqueViolation(err, "friend_requests_pair_unique") {
			return nil, domain.ErrFriendRequestExists
		}
		return nil, err
	}
	return &fr, nil
}

func (r *FriendRequestRepo) GetFriendRequest(ctx context.Context, id string) (*domain.FriendRequest, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrFriendRequestNotFound
	}
	exec := GetExecutor(ctx, r.db)
	fr, err := scanFriendRequest(exec.QueryRowContext(ctx, `
		SELECT `+friendRequestColumns+` FROM friend_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFriendRequestNotFound
		}
		return nil, err
	}
	return &fr, nil
}

// ResolveFriendRequest moves the request out of pending with a conditional
// update, so of two concurrent resolutions exactly one reports changed.
func (r *FriendRequestRepo) ResolveFriendRequest(
	ctx context.Context,
	id string,
	status domain.FriendRequestStatus,
) (*domain.FriendRequest, bool, error) {
	if uuid.Validate(id) != nil {
		return nil, false, domain.ErrFriendRequestNotFound
	}
	exec := GetExecutor(ctx, r.db)
	fr, err := scanFriendRequest(exec.QueryRowContext(ctx, `
		UPDATE friend_requests SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+friendRequestColumns, id, status))
	if err == nil {
		return &fr, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	cur, err := r.GetFriendRequest(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if cur.Status == status {
		return cur, false, nil
	}
	return nil, false, domain.ErrInvalidTransition
}

func (r *FriendRequestRepo) ListFriendRequests(ctx context.Context, userID domain.UserID) ([]domain.FriendRequest, error) {
	return r.list(ctx, `
		SELECT `+friendRequestColumns+`
		FROM friend_requests
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC`, userID)
}

func (r *FriendRequestRepo) ListPendingFor(ctx context.Context, userID domain.UserID) ([]domain.FriendRequest, error) {
	return r.list(ctx, `
		SELECT `+friendRequestColumns+`
		FROM friend_requests
		WHERE to_user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`, userID)
}

func (r *FriendRequestRepo) list(ctx context.Context, query string, args ...any) ([]domain.FriendRequest, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.FriendRequest
	for rows.Next() {
		fr, err := scanFriendRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}
