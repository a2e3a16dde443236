package admin

import (
	"net/http"

	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/types"
)

// ListAPIKeys returns previews of all client keys (GET /api/admin/apikeys).
// Hashes never leave storage; only prefixes and metadata are listed.
func (h *Handlers) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Storage.ListAPIKeys()
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to list keys"))
		return
	}

	previews := make([]*storage.ClientAPIKeyPreview, len(keys))
	for i, k := range keys {
		previews[i] = k.ToPreview()
	}

	writeJSON(w, map[string]any{"data": previews}, http.StatusOK)
}

// GetAPIKeyByID returns one key preview (GET /api/admin/apikeys/{id}).
func (h *Handlers) GetAPIKeyByID(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyByID(w, r)
	if !ok {
		return
	}
	writeJSON(w, key.ToPreview(), http.StatusOK)
}
