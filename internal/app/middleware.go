package app

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenMiddleware restricts access to callers presenting the shared token as
// "Authorization: Bearer <token>". An empty token disables the check.
func TokenMiddleware(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
