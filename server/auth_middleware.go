package server

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuthMiddleware gates the administrative routes behind a bearer
// key checked against a bcrypt hash from config. An empty hash disables
// the check, which is only acceptable for local development.
func (s *Server) AdminAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyHash := s.config.GetAdminAPIKeyHash()
		if keyHash == "" {
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, "unauthorized", "missing Authorization header", http.StatusUnauthorized)
			return
		}

		key, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			writeJSONError(w, "unauthorized", "invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			writeJSONError(w, "unauthorized", "invalid admin key", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}
