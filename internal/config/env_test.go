package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVICE_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Service.Add)
	require.Equal(t, "postgres", cfg.Service.Storage)
	require.Equal(t, devSecret, cfg.SecretToken)
	require.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 256, cfg.Relay.SendBuffer)
	require.False(t, cfg.Relay.BroadcastChatUpdates)
	require.Equal(t, 200, cfg.RateLimit.APILimit)
	require.Equal(t, 15*time.Minute, cfg.RateLimit.APIWindow)
	require.Equal(t, 500, cfg.RateLimit.ChatsLimit)
	require.False(t, cfg.Twilio.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVICE_ADDR", ":9090")
	t.Setenv("SERVICE_STORAGE", "MEMORY")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/chat")
	t.Setenv("REDIS_DIAL_TIMEOUT", "750ms")
	t.Setenv("RELAY_BROADCAST_CHAT_UPDATES", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Service.Add)
	require.Equal(t, "memory", cfg.Service.Storage)
	require.Equal(t, "postgres://u:p@db:5432/chat", cfg.Postgres.DSN)
	require.Equal(t, 750*time.Millisecond, cfg.Redis.DialTimeout)
	require.True(t, cfg.Relay.BroadcastChatUpdates)
	require.Equal(t, "s3cret", cfg.SecretToken)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duochat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  name: "chat-edge"
relay:
  send_buffer: 32
ratelimit:
  api_limit: 10
`), 0o644))
	t.Setenv("DUOCHAT_CONFIG", path)
	t.Setenv("JWT_SECRET", "x")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "chat-edge", cfg.Service.Name)
	require.Equal(t, 32, cfg.Relay.SendBuffer)
	require.Equal(t, 10, cfg.RateLimit.APILimit)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("unknown storage", func(t *testing.T) {
		t.Setenv("SERVICE_STORAGE", "mongo")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("missing secret in production", func(t *testing.T) {
		t.Setenv("SERVICE_ENV", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		require.Error(t, err)
	})
}
