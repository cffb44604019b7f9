package postgres

import (
	"context"
	"database/sql"
	"errors"

	"duochat/internal/core/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, phone_number, name, profile_image, session_id, created_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.Name, &u.ProfileImage, &u.SessionID, &u.CreatedAt)
	return u, err
}

func (r *UserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		return domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		INSERT INTO users (id, phone_number, name, profile_image, session_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		u.ID, u.PhoneNumber, u.Name, u.ProfileImage, u.SessionID,
	).Scan(&u.CreatedAt)
	if isUniqueViolation(err, "users_phone_number_key") {
		return domain.ErrUserExists
	}
	return err
}

func (r *UserRepo) GetUserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	u, err := scanUser(exec.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ListUsers(ctx context.Context, except domain.UserID) ([]domain.User, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id <> $1
		ORDER BY created_at`, except)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) GetUsersByIDs(ctx context.Context, ids []domain.UserID) (map[domain.UserID]domain.User, error) {
	out := make(map[domain.UserID]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}
