package middleware

import (
	"context"
	"net/http"
	"strings"

	"duochat/internal/core/domain"
	"duochat/pkg/httputil"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// TokenValidator resolves a bearer token to its subject.
type TokenValidator interface {
	ValidateToken(token string) (domain.UserID, error)
}

// UserIDFrom returns the authenticated identity placed in ctx by
// AuthMiddleware.
func UserIDFrom(ctx context.Context) (domain.UserID, bool) {
	id, ok := ctx.Value(UserIDKey).(domain.UserID)
	return id, ok && id != ""
}

// WithUserID stores an authenticated identity in ctx.
func WithUserID(ctx context.Context, id domain.UserID) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// AuthMiddleware requires a valid token, taken from the Authorization header
// or, for browser socket upgrades that cannot set headers, the token query
// parameter.
func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				httputil.WriteMessage(w, http.StatusUnauthorized, "Access token required")
				return
			}
			userID, err := tokens.ValidateToken(raw)
			if err != nil {
				httputil.WriteMessage(w, http.StatusForbidden, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, true
	}
	return "", false
}
