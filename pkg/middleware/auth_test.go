package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"duochat/internal/core/domain"
)

type staticTokens map[string]domain.UserID

func (s staticTokens) ValidateToken(token string) (domain.UserID, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func TestAuthMiddleware(t *testing.T) {
	var seen domain.UserID
	h := AuthMiddleware(staticTokens{"good": "u1"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		target string
		header string
		status int
		user   domain.UserID
	}{
		{name: "bearer header", target: "/", header: "Bearer good", status: http.StatusNoContent, user: "u1"},
		{name: "query token", target: "/ws?token=good", status: http.StatusNoContent, user: "u1"},
		{name: "missing", target: "/", status: http.StatusUnauthorized},
		{name: "wrong scheme", target: "/", header: "Basic good", status: http.StatusUnauthorized},
		{name: "invalid", target: "/", header: "Bearer nope", status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, seen)
		})
	}
}
