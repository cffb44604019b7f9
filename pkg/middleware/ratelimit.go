package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"duochat/pkg/httputil"
)

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}

// RejectionCounter is told about every rejected request.
type RejectionCounter interface {
	IncRateLimited(scope string)
}

// RateLimit allows limit requests per client IP per window for the named
// scope. A limiter error lets the request through.
func RateLimit(limiter Limiter, scope string, limit int, window time.Duration, log *slog.Logger, counter RejectionCounter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			allowed, remaining, err := limiter.Allow(r.Context(), "ratelimit:"+scope+":"+ip, limit, window)
			if err != nil {
				log.WarnContext(r.Context(), "ratelimit - allow - limiter unavailable", slog.String("scope", scope), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				if counter != nil {
					counter.IncRateLimited(scope)
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				httputil.WriteMessage(w, http.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
