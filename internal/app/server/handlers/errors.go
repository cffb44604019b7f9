package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"duochat/internal/core/domain"
	"duochat/internal/platform/logger"
	"duochat/pkg/httputil"
	"duochat/pkg/logging"
	"duochat/pkg/middleware"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidUserID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOTPInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrChatNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrFriendRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrFriendRequestExists),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOTPUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, base *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context(), base).ErrorContext(r.Context(), "handler - request failed", logging.Err(err))
		httputil.WriteMessage(w, status, "Server error")
		return
	}
	httputil.WriteMessage(w, status, publicMessage(err))
}

// publicMessage drops the sentinel prefix from wrapped validation errors.
func publicMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && errors.Is(err, domain.ErrValidation) {
		return msg[i+2:]
	}
	return msg
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	return nil
}

func callerOrAbort(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	id, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		httputil.WriteMessage(w, http.StatusUnauthorized, "Access token required")
	}
	return id, ok
}
