// Package models contains data models for storage operations.
package models

import (
	"sort"
	"time"
)

// Well-known keys in Credential.Data. Providers read the fields they need;
// unknown keys are preserved untouched.
const (
	DataAPIKey          = "api_key"
	DataToken           = "token"
	DataBaseURL         = "base_url"
	DataProjectID       = "project_id"
	DataSpaceID         = "space_id"
	DataRegion          = "region"
	DataAccessKeyID     = "access_key_id"
	DataSecretAccessKey = "secret_access_key"
	DataSessionToken    = "session_token"
)

// Credential represents stored secret material for an LLM provider. Data is
// encrypted as a single blob at rest.
type Credential struct {
	ID        string            `json:"id"`
	Provider  string            `json:"provider"` // watsonx, openai, anthropic, ...
	Name      string            `json:"name"`     // User-friendly name
	Data      map[string]string `json:"data"`     // Secret fields, encrypted at rest
	IsDefault bool              `json:"is_default"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Get returns a data field or empty string.
func (c *Credential) Get(key string) string {
	if c == nil || c.Data == nil {
		return ""
	}
	return c.Data[key]
}

// APIKey returns the api_key field.
func (c *Credential) APIKey() string {
	return c.Get(DataAPIKey)
}

// CredentialPreview is a safe representation of a credential. Secret values
// are replaced by a masked API key preview and the list of stored field names.
type CredentialPreview struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider"`
	Name          string    `json:"name"`
	APIKeyPreview string    `json:"api_key_preview,omitempty"` // e.g., "sk-abc...wxyz"
	Fields        []string  `json:"fields"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MaskSecret creates a masked preview of a secret value.
func MaskSecret(value string) string {
	if len(value) <= 10 {
		return "***"
	}
	return value[:6] + "..." + value[len(value)-4:]
}

// ToPreview converts a Credential to a safe CredentialPreview.
func (c *Credential) ToPreview() *CredentialPreview {
	fields := make([]string, 0, len(c.Data))
	for key := range c.Data {
		fields = append(fields, key)
	}
	sort.Strings(fields)

	preview := &CredentialPreview{
		ID:        c.ID,
		Provider:  c.Provider,
		Name:      c.Name,
		Fields:    fields,
		IsDefault: c.IsDefault,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if key := c.APIKey(); key != "" {
		preview.APIKeyPreview = MaskSecret(key)
	}
	return preview
}
