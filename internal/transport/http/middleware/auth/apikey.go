package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/modelgate/modelgate/internal/cache"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/types"
)

// APIKeyContextKey is the context key for the authenticated API key.
type APIKeyContextKey struct{}

// APIKeyAuth authenticates requests with gateway-issued keys. Only keys
// starting with "mg_" are accepted. Validated keys are cached by prefix so
// repeated requests skip the database; the presented secret is still
// re-verified against the cached hash on every hit.
func APIKeyAuth(store storage.Storage, keys *cache.Cache[*storage.ClientAPIKey]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "API key required")
				return
			}
			if !strings.HasPrefix(apiKey, storage.APIKeyPrefix) {
				writeUnauthorized(w, "only modelgate API keys (mg_*) are accepted")
				return
			}

			prefix := storage.ExtractKeyPrefix(apiKey)
			cacheKey := "apikey:" + prefix

			if keys != nil {
				if cached, found := keys.Get(cacheKey); found {
					if valid, _ := storage.VerifyPassword(apiKey, cached.KeyHash); valid && cached.Usable() {
						proceed(w, r, next, cached)
						return
					}
				}
			}

			// Prefixes are not unique, so verify against every row that shares one.
			matches, err := store.GetAPIKeyByPrefix(prefix)
			if err != nil || len(matches) == 0 {
				writeUnauthorized(w, "invalid API key")
				return
			}

			var key *storage.ClientAPIKey
			for _, candidate := range matches {
				if valid, _ := storage.VerifyPassword(apiKey, candidate.KeyHash); valid {
					key = candidate
					break
				}
			}
			if key == nil || !key.Usable() {
				writeUnauthorized(w, "invalid or expired API key")
				return
			}

			if keys != nil {
				keys.Set(cacheKey, key)
			}
			go func() { _ = store.UpdateAPIKeyLastUsed(key.ID) }()

			proceed(w, r, next, key)
		})
	}
}

// proceed stores the key on the request context and invokes the next handler.
func proceed(w http.ResponseWriter, r *http.Request, next http.Handler, key *storage.ClientAPIKey) {
	ctx := context.WithValue(r.Context(), APIKeyContextKey{}, key)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// GetAPIKey retrieves the authenticated API key from context, or nil.
func GetAPIKey(ctx context.Context) *storage.ClientAPIKey {
	if key, ok := ctx.Value(APIKeyContextKey{}).(*storage.ClientAPIKey); ok {
		return key
	}
	return nil
}

// RequireScope rejects requests whose key lacks the given scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetAPIKey(r.Context())
			if key == nil {
				writeUnauthorized(w, "authentication required")
				return
			}
			if !key.HasScope(scope) {
				writeForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeForbidden(w http.ResponseWriter, message string) {
	types.WriteError(w, http.StatusForbidden, types.NewAPIError(message, types.ErrorTypePermission))
}
