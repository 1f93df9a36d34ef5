// Package middleware provides the HTTP middleware shared across the API
// surface: rate limiting and chain composition.
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"logistics-news/internal/handler/http/respond"
)

// DefaultRateLimit is requests per minute per API key or client IP.
const DefaultRateLimit = 120

// RateLimiter is an in-memory sliding window limiter. The key is the
// caller's API key when present, otherwise the client IP. Health and
// WebSocket paths bypass the limiter.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	requests map[string][]time.Time
	lastGC   time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		requests: make(map[string][]time.Time),
		lastGC:   time.Now(),
	}
}

// Middleware enforces the limit and answers 429 when it is exceeded.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skipRateLimit(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)
		if !rl.allow(key, time.Now()) {
			slog.Warn("rate limit exceeded",
				slog.String("key", key),
				slog.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "60")
			respond.Error(w, http.StatusTooManyRequests, respond.CodeRateLimited, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func skipRateLimit(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/") ||
		strings.HasPrefix(path, "/ws") || path == "/metrics"
}

// clientKey prefers the API key so authenticated clients are not
// penalized for sharing a NAT address.
func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return "key:" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

// allow implements the sliding window: drop timestamps older than the
// window, admit while the count stays under the limit.
func (rl *RateLimiter) allow(key string, now time.Time) bool {
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	stamps := rl.requests[key]
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= rl.limit {
		rl.requests[key] = live
		return false
	}
	rl.requests[key] = append(live, now)

	if now.Sub(rl.lastGC) > rl.window {
		rl.gc(cutoff)
		rl.lastGC = now
	}
	return true
}

// gc drops keys whose entire window has expired. Caller holds the lock.
func (rl *RateLimiter) gc(cutoff time.Time) {
	for key, stamps := range rl.requests {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(rl.requests, key)
		}
	}
}

// Chain composes middleware left to right: the first wraps outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
