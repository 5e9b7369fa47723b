package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// HasValidAPIKey reports whether r carries validKey as a Bearer token.
// No configured key means no caller is trusted.
func HasValidAPIKey(r *http.Request, validKey string) bool {
	if validKey == "" {
		return false
	}
	provided, ok := BearerToken(r)
	return ok && subtle.ConstantTimeCompare([]byte(provided), []byte(validKey)) == 1
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
