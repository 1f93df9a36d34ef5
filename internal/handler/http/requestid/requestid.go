// Package requestid tags every request with an id so one request's log
// lines can be stitched together across components.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header carries the request id between client and server.
const Header = "X-Request-ID"

type ctxKey struct{}

// FromContext returns the request id, or the empty string when the
// request did not pass through Middleware.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// NewContext returns a context carrying the given request id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Middleware stamps each request with an id. A caller-supplied header
// value is kept so ids stay stable across proxies; otherwise a fresh
// UUID is minted. The id is echoed on the response and stored in the
// request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}
