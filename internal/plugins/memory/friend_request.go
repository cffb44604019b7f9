package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"duochat/internal/core/domain"
)

type FriendRequestRepo struct {
	mu       sync.RWMutex
	requests map[string]*domain.FriendRequest
	byPair   map[pairKey]string
	nowFn    func() time.Time
}

func NewFriendRequestRepository() *FriendRequestRepo {
	return &FriendRequestRepo{
		requests: make(map[string]*domain.FriendRequest),
		byPair:   make(map[pairKey]string),
		nowFn:    time.Now,
	}
}

func (r *FriendRequestRepo) CreateFriendRequest(_ context.Context, from, to domain.UserID) (*domain.FriendRequest, error) {
	k := keyOf(from, to)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPair[k]; ok {
		return nil, domain.ErrFriendRequestExists
	}
	now := r.nowFn().UTC()
	req := &domain.FriendRequest{
		ID:         uuid.NewString(),
		FromUserID: from,
		ToUserID:   to,
		Status:     domain.FriendRequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.requests[req.ID] = req
	r.byPair[k] = req.ID
	out := *req
	return &out, nil
}

func (r *FriendRequestRepo) GetFriendRequest(_ context.Context, id string) (*domain.FriendRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrFriendRequestNotFound
	}
	out := *req
	return &out, nil
}

func (r *FriendRequestRepo) ResolveFriendRequest(_ context.Context, id string, status domain.FriendRequestStatus) (*domain.FriendRequest, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, false, domain.ErrFriendRequestNotFound
	}
	switch req.Status {
	case domain.FriendRequestPending:
		req.Status = status
		req.UpdatedAt = r.nowFn().UTC()
		out := *req
		return &out, true, nil
	case status:
		out := *req
		return &out, false, nil
	default:
		return nil, false, domain.ErrInvalidTransition
	}
}

func (r *FriendRequestRepo) ListFriendRequests(_ context.Context, userID domain.UserID) ([]domain.FriendRequest, error) {
	return r.list(func(req *domain.FriendRequest) bool { return req.Involves(userID) }), nil
}

func (r *FriendRequestRepo) ListPendingFor(_ context.Context, userID domain.UserID) ([]domain.FriendRequest, error) {
	return r.list(func(req *domain.FriendRequest) bool {
		return req.ToUserID == userID && req.Status == domain.FriendRequestPending
	}), nil
}

func (r *FriendRequestRepo) list(keep func(*domain.FriendRequest) bool) []domain.FriendRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.FriendRequest
	for _, req := range r.requests {
		if keep(req) {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
