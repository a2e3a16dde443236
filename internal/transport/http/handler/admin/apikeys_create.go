package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/types"
)

// issuedKey is the outcome of minting a key secret: the plaintext shown to
// the caller once, plus the hash and prefix that get stored.
type issuedKey struct {
	plain  string
	hash   string
	prefix string
}

// mintKey generates a fresh secret and its argon2 hash.
func mintKey() (*issuedKey, error) {
	plain, err := storage.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	hash, err := storage.HashPassword(plain, storage.DefaultArgon2Params())
	if err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	return &issuedKey{plain: plain, hash: hash, prefix: storage.ExtractKeyPrefix(plain)}, nil
}

// validateScopes accepts only the scopes the router understands.
func validateScopes(scopes []string) error {
	for _, scope := range scopes {
		if scope != "proxy" && scope != "admin" {
			return fmt.Errorf("invalid scope: %s", scope)
		}
	}
	return nil
}

// keyResponse renders the one-time plaintext response for create and rotate.
func keyResponse(key *storage.ClientAPIKey, plain string) CreateAPIKeyResponse {
	return CreateAPIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Key:       plain,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
		RateLimit: key.RateLimit,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
		ExpiresAt: key.ExpiresAt,
	}
}

// CreateAPIKey mints a new client key (POST /api/admin/apikeys).
func (h *Handlers) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("invalid request body"))
		return
	}

	if req.Name == "" {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("name is required"))
		return
	}
	if len(req.Scopes) == 0 {
		req.Scopes = []string{"proxy"}
	}
	if err := validateScopes(req.Scopes); err != nil {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest(err.Error()))
		return
	}
	if req.RateLimit < 0 {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("rate_limit must be >= 0"))
		return
	}

	minted, err := mintKey()
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to generate key"))
		return
	}

	var expiresAt *time.Time
	if req.ExpiresIn != nil && *req.ExpiresIn > 0 {
		t := time.Now().Add(time.Duration(*req.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	key := &storage.ClientAPIKey{
		ID:        uuid.New().String(),
		Name:      req.Name,
		KeyHash:   minted.hash,
		KeyPrefix: minted.prefix,
		Scopes:    req.Scopes,
		RateLimit: req.RateLimit,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}

	if err := h.Storage.CreateAPIKey(key); err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to create key"))
		return
	}

	writeJSON(w, keyResponse(key, minted.plain), http.StatusCreated)
}
