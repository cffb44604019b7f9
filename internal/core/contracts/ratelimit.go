package contracts

import (
	"context"
	"time"
)

// RateLimiter counts hits per key in fixed windows.
type RateLimiter interface {
	// Allow records one hit and reports whether key is still within limit,
	// along with the remaining budget for the current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}
