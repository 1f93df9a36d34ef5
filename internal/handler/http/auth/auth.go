// Package auth verifies the X-API-Key header against stored key hashes.
// The system runs open until the first key is created; once any key
// exists, every non-exempt endpoint requires a valid one.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/repository"
)

// HeaderName carries the cleartext API key.
const HeaderName = "X-API-Key"

// countCacheTTL bounds how often the open-mode check hits the store.
const countCacheTTL = 30 * time.Second

type ctxKey string

const ctxAPIKey ctxKey = "api_key"

// FromContext returns the authenticated key, or nil in open mode.
func FromContext(ctx context.Context) *entity.APIKey {
	key, _ := ctx.Value(ctxAPIKey).(*entity.APIKey)
	return key
}

// Authenticator is the API-key middleware.
type Authenticator struct {
	keys repository.APIKeyRepository

	mu           sync.Mutex
	cachedCount  int64
	countFetched time.Time
}

// New creates an Authenticator.
func New(keys repository.APIKeyRepository) *Authenticator {
	return &Authenticator{keys: keys}
}

// Middleware enforces API-key authentication on all paths except
// health, metrics and the WebSocket upgrade (which authenticates before
// upgrading via the same header when keys exist).
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if exemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		count, err := a.keyCount(r.Context())
		if err != nil {
			respond.Internal(w, err)
			return
		}
		if count == 0 {
			// No keys configured: the system runs open.
			next.ServeHTTP(w, r)
			return
		}

		cleartext := r.Header.Get(HeaderName)
		if cleartext == "" {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "missing API key")
			return
		}

		key, err := a.keys.GetByHash(r.Context(), entity.HashAPIKey(cleartext))
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid API key")
			return
		}

		if err := a.keys.TouchLastUsed(r.Context(), key.ID, time.Now().UTC()); err != nil {
			slog.Warn("api key last-used update failed",
				slog.String("key_id", key.ID),
				slog.String("error", err.Error()))
		}

		ctx := context.WithValue(r.Context(), ctxAPIKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates a handler behind the admin role. In open mode
// (no keys exist) the admin surface stays reachable.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := FromContext(r.Context())
		if key == nil {
			count, err := a.keyCount(r.Context())
			if err != nil {
				respond.Internal(w, err)
				return
			}
			if count == 0 {
				next.ServeHTTP(w, r)
				return
			}
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "missing API key")
			return
		}
		if key.Role != entity.RoleAdmin {
			respond.Error(w, http.StatusForbidden, respond.CodeForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func exemptPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/") || path == "/metrics"
}

// keyCount caches the active-key count briefly; creating the first key
// closes open mode within the TTL.
func (a *Authenticator) keyCount(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.countFetched) < countCacheTTL {
		return a.cachedCount, nil
	}
	count, err := a.keys.Count(ctx)
	if err != nil {
		return 0, err
	}
	a.cachedCount, a.countFetched = count, time.Now()
	return count, nil
}

// Invalidate drops the cached key count, used after key creation or
// revocation so mode changes take effect immediately.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	a.countFetched = time.Time{}
	a.mu.Unlock()
}
