// Package memory holds process-local twins of the persistence gateways. They
// back the "memory" storage mode and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"duochat/internal/core/domain"
)

type UserRepo struct {
	mu      sync.RWMutex
	users   map[domain.UserID]domain.User
	byPhone map[string]domain.UserID
	nowFn   func() time.Time
}

func NewUserRepository() *UserRepo {
	return &UserRepo{
		users:   make(map[domain.UserID]domain.User),
		byPhone: make(map[string]domain.UserID),
		nowFn:   time.Now,
	}
}

func (r *UserRepo) CreateUser(_ context.Context, u *domain.User) error {
	if u.ID == "" {
		return domain.ErrInvalidUserID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPhone[u.PhoneNumber]; ok {
		return domain.ErrUserExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.nowFn().UTC()
	}
	r.users[u.ID] = *u
	r.byPhone[u.PhoneNumber] = u.ID
	return nil
}

func (r *UserRepo) GetUserByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepo) ListUsers(_ context.Context, except domain.UserID) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.users))
	for id, u := range r.users {
		if id == except {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepo) GetUsersByIDs(_ context.Context, ids []domain.UserID) (map[domain.UserID]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.UserID]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}
