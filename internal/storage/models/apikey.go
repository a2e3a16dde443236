package models

import (
	"slices"
	"time"
)

// ClientAPIKey is a key issued to gateway clients. The plaintext secret is
// shown once at creation; only its Argon2id hash and an 11-char prefix
// ("mg_" plus 8 chars) are stored for later verification and lookup.
type ClientAPIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`     // "proxy" and/or "admin"
	RateLimit  int        `json:"rate_limit"` // requests per minute, 0 = unlimited
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// HasScope reports whether the key carries the given scope.
func (k *ClientAPIKey) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// IsExpired reports whether the key's expiry, if set, has passed.
func (k *ClientAPIKey) IsExpired() bool {
	return k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt)
}

// Usable reports whether the key may authenticate a request right now.
func (k *ClientAPIKey) Usable() bool {
	return k.IsActive && !k.IsExpired()
}

// ClientAPIKeyPreview is the list/update representation of a key. It carries
// everything but the hash.
type ClientAPIKeyPreview struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	RateLimit  int        `json:"rate_limit"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// ToPreview strips the hash for responses.
func (k *ClientAPIKey) ToPreview() *ClientAPIKeyPreview {
	return &ClientAPIKeyPreview{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		Scopes:     k.Scopes,
		RateLimit:  k.RateLimit,
		IsActive:   k.IsActive,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
	}
}
