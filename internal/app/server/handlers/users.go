package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"duochat/internal/core/domain"
	"duochat/internal/core/services"
	"duochat/internal/platform/logger"
	"duochat/pkg/httputil"
	"duochat/pkg/logging"
)

type UserHandler struct {
	log      *slog.Logger
	userSvc  *services.UserService
	tokenSvc *services.TokenService
}

func NewUserHandler(log *slog.Logger, u *services.UserService, t *services.TokenService) *UserHandler {
	return &UserHandler{log: log, userSvc: u, tokenSvc: t}
}

type registerResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register creates an account and returns a signed token for it.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	user, err := h.userSvc.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	token, err := h.tokenSvc.GenerateToken(user.ID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	logger.FromContext(r.Context(), h.log).InfoContext(r.Context(), "user handler - register - success", logging.User(user.ID.String()))
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{Token: token, User: user})
}

func (h *UserHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.userSvc.RequestOTP(r.Context(), req.PhoneNumber); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "OTP sent successfully")
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	users, err := h.userSvc.ListUsers(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerOrAbort(w, r); !ok {
		return
	}
	user, err := h.userSvc.GetUser(r.Context(), domain.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}
