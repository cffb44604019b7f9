package memory

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window counter per key. Expired windows are swept at
// most once per window length.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	nextSweep time.Time
	nowFn     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]*window), nowFn: time.Now}
}

func (l *RateLimiter) Allow(_ context.Context, key string, limit int, win time.Duration) (bool, int, error) {
	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()
	if !now.Before(l.nextSweep) {
		l.sweepLocked(now)
		l.nextSweep = now.Add(win)
	}
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(win)}
		l.windows[key] = w
	}
	w.count++
	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return w.count <= limit, remaining, nil
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
