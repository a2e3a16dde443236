package admin

import (
	"errors"
	"net/http"

	"github.com/modelgate/modelgate/internal/storage"
)

// credByID loads a credential by path id, writing the error response itself
// when the lookup fails. Callers bail out on ok == false.
func (h *Handlers) credByID(w http.ResponseWriter, r *http.Request) (*storage.Credential, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, "Credential ID is required", http.StatusBadRequest)
		return nil, false
	}
	cred, err := h.Storage.GetCredential(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, "Credential not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		writeJSONError(w, "Failed to get credential: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return cred, true
}

// ListCredentials lists stored provider credentials (GET /api/admin/credentials).
// Secret field values are masked; only previews leave the server.
func (h *Handlers) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.Storage.ListCredentials()
	if err != nil {
		writeJSONError(w, "Failed to list credentials: "+err.Error(), http.StatusInternalServerError)
		return
	}

	previews := make([]*storage.CredentialPreview, len(creds))
	for i, cred := range creds {
		previews[i] = cred.ToPreview()
	}

	writeJSON(w, map[string]any{"credentials": previews}, http.StatusOK)
}

// GetCredential returns one masked credential (GET /api/admin/credentials/{id}).
func (h *Handlers) GetCredential(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credByID(w, r)
	if !ok {
		return
	}
	writeJSON(w, cred.ToPreview(), http.StatusOK)
}
