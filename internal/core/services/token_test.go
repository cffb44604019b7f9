package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/core/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	tok, err := svc.GenerateToken("u1")
	require.NoError(t, err)

	sub, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), sub)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewTokenService("a", time.Hour).GenerateToken("u1")
	require.NoError(t, err)

	_, err = NewTokenService("b", time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", time.Minute)
	svc.nowFn = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := svc.GenerateToken("u1")
	require.NoError(t, err)

	svc.nowFn = time.Now
	_, err = svc.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsGarbage(t *testing.T) {
	_, err := NewTokenService("secret", time.Hour).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
