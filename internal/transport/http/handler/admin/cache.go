package admin

import (
	"encoding/json"
	"net/http"
	"time"
)

// CachePing handles GET /api/admin/cache/ping. It verifies the in-process
// cache accepts and serves writes.
func (h *Handlers) CachePing(w http.ResponseWriter, r *http.Request) {
	if h.APIKeyCache == nil {
		writeJSONError(w, "cache not configured", http.StatusServiceUnavailable)
		return
	}

	if err := h.APIKeyCache.Ping(); err != nil {
		writeJSONError(w, "cache unhealthy: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]any{
		"status":    "healthy",
		"cache":     "ristretto",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// CacheFlush handles POST /api/admin/cache/flush. It drops every cached API
// key and resolved credential; subsequent calls fall through to storage.
func (h *Handlers) CacheFlush(w http.ResponseWriter, r *http.Request) {
	if h.APIKeyCache != nil {
		h.APIKeyCache.Flush()
	}
	if h.Resolver != nil {
		h.Resolver.InvalidateAll()
	}

	writeJSON(w, map[string]string{"status": "flushed"}, http.StatusOK)
}

// CacheDeleteRequest is the request body for deleting cache entries.
type CacheDeleteRequest struct {
	Keys []string `json:"keys"`
}

// CacheDelete handles POST /api/admin/cache/delete. Keys name API key cache
// entries, e.g. "apikey:mg_abc12345".
func (h *Handlers) CacheDelete(w http.ResponseWriter, r *http.Request) {
	var req CacheDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Keys) == 0 {
		writeJSONError(w, "keys is required", http.StatusBadRequest)
		return
	}

	if h.APIKeyCache != nil {
		for _, key := range req.Keys {
			h.APIKeyCache.Delete(key)
		}
	}

	writeJSON(w, map[string]any{
		"status": "deleted",
		"count":  len(req.Keys),
	}, http.StatusOK)
}
