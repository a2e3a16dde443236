package admin

import "time"

// CreateAPIKeyRequest creates a client API key. Scopes default to ["proxy"];
// rate_limit is requests per minute with 0 meaning unlimited; expires_in is
// seconds from now, omitted for a non-expiring key.
type CreateAPIKeyRequest struct {
	Name      string   `json:"name"`
	Scopes    []string `json:"scopes"`
	RateLimit int      `json:"rate_limit"`
	ExpiresIn *int     `json:"expires_in"`
}

// CreateAPIKeyResponse carries the plaintext key. It is returned exactly once,
// on create and on rotate; every other read surfaces only the preview.
type CreateAPIKeyResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Key       string     `json:"key"`
	KeyPrefix string     `json:"key_prefix"`
	Scopes    []string   `json:"scopes"`
	RateLimit int        `json:"rate_limit"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// UpdateAPIKeyRequest applies partial updates; nil fields are left unchanged.
type UpdateAPIKeyRequest struct {
	Name      *string  `json:"name"`
	Scopes    []string `json:"scopes"`
	RateLimit *int     `json:"rate_limit"`
	IsActive  *bool    `json:"is_active"`
}
