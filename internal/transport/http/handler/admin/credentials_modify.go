package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/modelgate/modelgate/internal/storage"
)

// CreateCredential stores a new provider credential (POST /api/admin/credentials).
// The data map is provider-shaped free-form fields; storage encrypts it at rest.
func (h *Handlers) CreateCredential(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Provider == "" || req.Name == "" || len(req.Data) == 0 {
		writeJSONError(w, "provider, name, and data are required", http.StatusBadRequest)
		return
	}

	cred := &storage.Credential{
		Provider:  req.Provider,
		Name:      req.Name,
		Data:      req.Data,
		IsDefault: req.IsDefault,
	}
	if err := h.Storage.CreateCredential(cred); err != nil {
		writeJSONError(w, "Failed to create credential: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.invalidateCredentials(cred.Provider)

	writeJSON(w, cred.ToPreview(), http.StatusCreated)
}

// UpdateCredential applies a partial update (PUT /api/admin/credentials/{id}).
// Data, when present, replaces the stored map wholesale rather than merging.
func (h *Handlers) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credByID(w, r)
	if !ok {
		return
	}

	var req UpdateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// A provider change must drop resolved entries under the old name too.
	oldProvider := cred.Provider

	if req.Provider != nil {
		cred.Provider = *req.Provider
	}
	if req.Name != nil {
		cred.Name = *req.Name
	}
	if req.Data != nil {
		cred.Data = *req.Data
	}
	if req.IsDefault != nil {
		cred.IsDefault = *req.IsDefault
	}
	cred.UpdatedAt = time.Now()

	if err := h.Storage.UpdateCredential(cred); err != nil {
		writeJSONError(w, "Failed to update credential: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.invalidateCredentials(oldProvider)
	if cred.Provider != oldProvider {
		h.invalidateCredentials(cred.Provider)
	}

	writeJSON(w, cred.ToPreview(), http.StatusOK)
}

// DeleteCredential removes a credential (DELETE /api/admin/credentials/{id}).
// The record is loaded first so the resolver cache for its provider can be
// flushed after the delete.
func (h *Handlers) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credByID(w, r)
	if !ok {
		return
	}

	if err := h.Storage.DeleteCredential(cred.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, "Credential not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "Failed to delete credential: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.invalidateCredentials(cred.Provider)

	w.WriteHeader(http.StatusNoContent)
}

// SetDefaultCredential marks a credential as its provider's default
// (POST /api/admin/credentials/{id}/default). Any previous default for the
// same provider is demoted inside the storage transaction.
func (h *Handlers) SetDefaultCredential(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, "Credential ID is required", http.StatusBadRequest)
		return
	}

	if err := h.Storage.SetDefaultCredential(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, "Credential not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "Failed to set default credential: "+err.Error(), http.StatusInternalServerError)
		return
	}

	cred, err := h.Storage.GetCredential(id)
	if err != nil {
		writeJSONError(w, "Failed to get credential: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.invalidateCredentials(cred.Provider)

	writeJSON(w, cred.ToPreview(), http.StatusOK)
}
