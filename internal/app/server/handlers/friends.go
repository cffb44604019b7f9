package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"duochat/internal/core/domain"
	"duochat/internal/core/services"
	"duochat/pkg/httputil"
	"duochat/pkg/logging"
)

type FriendHandler struct {
	log     *slog.Logger
	friends *services.FriendService
	users   *services.UserService
}

func NewFriendHandler(log *slog.Logger, f *services.FriendService, u *services.UserService) *FriendHandler {
	return &FriendHandler{log: log, friends: f, users: u}
}

func (h *FriendHandler) Send(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req struct {
		ToUserID domain.UserID `json:"toUserId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	fr, err := h.friends.Send(r.Context(), caller, req.ToUserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, h.describe(r, []domain.FriendRequest{*fr})[0])
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	reqs, err := h.friends.List(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.describe(r, reqs))
}

func (h *FriendHandler) Pending(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	reqs, err := h.friends.Pending(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.describe(r, reqs))
}

func (h *FriendHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req struct {
		Status domain.FriendRequestStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	fr, err := h.friends.Resolve(r.Context(), caller, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.describe(r, []domain.FriendRequest{*fr})[0])
}

// describe resolves both parties of each request. The requests are already
// committed, so a failed lookup falls back to the bare requests.
func (h *FriendHandler) describe(r *http.Request, reqs []domain.FriendRequest) []services.FriendRequestView {
	views, err := h.users.DescribeRequests(r.Context(), reqs)
	if err == nil {
		return views
	}
	h.log.WarnContext(r.Context(), "friends - describe requests failed", logging.Err(err))
	views = make([]services.FriendRequestView, len(reqs))
	for i, fr := range reqs {
		views[i] = services.FriendRequestView{FriendRequest: fr}
	}
	return views
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
