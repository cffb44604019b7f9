package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/config"
	"duochat/pkg/logging"
)

func TestJSONLoggerCarriesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, config.Config{
		Service: &config.ServiceConfig{Name: "duochat", Env: "test", Add: ":8080"},
		Logger:  &config.LoggerConfig{Level: "warn", Format: "json"},
	})

	log.Info("dropped")
	log.Warn("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "duochat", line["service"])
	assert.Equal(t, "test", line["env"])
}

func TestFromContextPrefersRequestLogger(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	req := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	assert.Same(t, base, FromContext(context.Background(), base))
	assert.Same(t, req, FromContext(logging.WithContext(context.Background(), req), base))
}
