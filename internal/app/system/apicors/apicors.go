// Package apicors provides CORS middleware for public, read-only endpoints
// that any origin may embed. It never allows credentials, so the session
// cookie is not sent cross-site to these routes.
package apicors

import (
	"net/http"
	"strconv"
	"time"
)

// DefaultMaxAge is how long browsers may cache a preflight answer.
const DefaultMaxAge = 24 * time.Hour

// ReadOnly returns middleware that opens GET and HEAD to every origin.
// Preflights are answered directly; any other method passes through
// without CORS headers, leaving the global policy in charge.
func ReadOnly(maxAge time.Duration) func(http.Handler) http.Handler {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	age := strconv.Itoa(int(maxAge / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead:
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Del("Access-Control-Allow-Credentials")
			case http.MethodOptions:
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", "*")
				h.Del("Access-Control-Allow-Credentials")
				h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Accept, Content-Type")
				h.Set("Access-Control-Max-Age", age)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
