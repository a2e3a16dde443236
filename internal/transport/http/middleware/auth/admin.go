// Package auth provides authentication middleware for HTTP routes.
package auth

import (
	"net/http"
	"strings"

	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/types"
)

// AdminAuth guards admin routes. The presented Bearer token is verified
// against the argon2 hash of the admin password held in storage; until a
// password has been set, every admin request is refused.
func AdminAuth(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			password, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "authorization required")
				return
			}

			hash, err := store.GetAdminPasswordHash()
			if err != nil {
				writeUnauthorized(w, "server error")
				return
			}
			if hash == "" {
				writeUnauthorized(w, "admin not configured")
				return
			}

			if valid, err := storage.VerifyPassword(password, hash); err != nil || !valid {
				writeUnauthorized(w, "invalid credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return token, token != ""
}

// writeUnauthorized writes a JSON 401 response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	types.WriteError(w, http.StatusUnauthorized, types.ErrAuthentication(message))
}
