package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/types"
)

// keyByID loads a key by path id, writing the error response itself when the
// lookup fails. Callers bail out on ok == false.
func (h *Handlers) keyByID(w http.ResponseWriter, r *http.Request) (*storage.ClientAPIKey, bool) {
	id := r.PathValue("id")
	if id == "" {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("id required"))
		return nil, false
	}
	key, err := h.Storage.GetAPIKey(id)
	if errors.Is(err, storage.ErrNotFound) {
		types.WriteError(w, http.StatusNotFound, types.ErrNotFound("key not found"))
		return nil, false
	}
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to get key"))
		return nil, false
	}
	return key, true
}

// UpdateAPIKey applies a partial update (PUT /api/admin/apikeys/{id}).
// Only fields present in the body change; nil pointers leave the stored
// value alone.
func (h *Handlers) UpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	var updates UpdateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("invalid request body"))
		return
	}

	key, ok := h.keyByID(w, r)
	if !ok {
		return
	}

	if updates.Name != nil {
		key.Name = *updates.Name
	}
	if updates.Scopes != nil {
		if err := validateScopes(updates.Scopes); err != nil {
			types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest(err.Error()))
			return
		}
		key.Scopes = updates.Scopes
	}
	if updates.RateLimit != nil {
		if *updates.RateLimit < 0 {
			types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("rate_limit must be >= 0"))
			return
		}
		key.RateLimit = *updates.RateLimit
	}
	if updates.IsActive != nil {
		key.IsActive = *updates.IsActive
	}

	if err := h.Storage.UpdateAPIKey(key); err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to update key"))
		return
	}

	// Drop the cached auth entry so deactivation takes effect now, not at TTL.
	h.InvalidateAPIKeyCache(key.KeyPrefix)

	writeJSON(w, key.ToPreview(), http.StatusOK)
}

// DeleteAPIKey removes a key (DELETE /api/admin/apikeys/{id}). The key is
// loaded first so its prefix can be evicted from the auth cache.
func (h *Handlers) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyByID(w, r)
	if !ok {
		return
	}

	if err := h.Storage.DeleteAPIKey(key.ID); err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to delete key"))
		return
	}

	h.InvalidateAPIKeyCache(key.KeyPrefix)

	w.WriteHeader(http.StatusNoContent)
}
