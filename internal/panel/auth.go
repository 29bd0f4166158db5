package panel

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checkToken(r, s.cfg.Token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func checkToken(r *http.Request, token string) bool {
	if token == "" {
		return true // No auth configured
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if equal(strings.TrimPrefix(auth, "Bearer "), token) {
			return true
		}
	}

	// Browser WebSocket clients cannot set headers.
	return equal(r.URL.Query().Get("token"), token)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
