// Package admin implements the administrative HTTP API for credentials,
// client API keys, usage reporting, and cache management.
package admin

import (
	"time"

	"github.com/modelgate/modelgate/internal/cache"
	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/storage"
)

// Handlers holds the dependencies for admin HTTP handlers.
type Handlers struct {
	Storage     storage.Storage
	StartTime   time.Time
	APIKeyCache *cache.Cache[*storage.ClientAPIKey]
	Resolver    *credential.Resolver
}

// New creates a new instance of admin handlers.
func New(store storage.Storage, startTime time.Time, apiKeyCache *cache.Cache[*storage.ClientAPIKey], resolver *credential.Resolver) *Handlers {
	return &Handlers{
		Storage:     store,
		StartTime:   startTime,
		APIKeyCache: apiKeyCache,
		Resolver:    resolver,
	}
}

// InvalidateAPIKeyCache removes a cached API key entry by its prefix.
func (h *Handlers) InvalidateAPIKeyCache(keyPrefix string) {
	if h.APIKeyCache != nil && keyPrefix != "" {
		h.APIKeyCache.Delete("apikey:" + keyPrefix)
	}
}

// invalidateCredentials drops resolved credentials for a provider so the
// next call sees the mutation.
func (h *Handlers) invalidateCredentials(provider string) {
	if h.Resolver != nil && provider != "" {
		h.Resolver.Invalidate(provider)
	}
}
