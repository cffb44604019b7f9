package logger

import (
	"context"
	"log/slog"

	"duochat/pkg/logging"
)

// FromContext returns the request-scoped logger, falling back to base and then
// to the process default.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if l := logging.Lookup(ctx); l != nil {
		return l
	}
	if base != nil {
		return base
	}
	return slog.Default()
}
