package admin

import (
	"net/http"

	"github.com/modelgate/modelgate/internal/types"
)

// RotateAPIKey swaps the secret on an existing record
// (POST /api/admin/apikeys/{id}/rotate). Name, scopes and rate limit carry
// over; the old secret stops working as soon as its cached prefix is evicted.
func (h *Handlers) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyByID(w, r)
	if !ok {
		return
	}

	minted, err := mintKey()
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to generate key"))
		return
	}

	oldPrefix := key.KeyPrefix
	key.KeyHash = minted.hash
	key.KeyPrefix = minted.prefix

	if err := h.Storage.UpdateAPIKey(key); err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to update key"))
		return
	}

	h.InvalidateAPIKeyCache(oldPrefix)

	writeJSON(w, keyResponse(key, minted.plain), http.StatusOK)
}
