package admin

// CreateCredentialRequest is the request body for creating a credential.
// Data carries the provider's secret fields, e.g. api_key, api_base,
// project_id.
type CreateCredentialRequest struct {
	Provider  string            `json:"provider"`
	Name      string            `json:"name"`
	Data      map[string]string `json:"data"`
	IsDefault bool              `json:"is_default"`
}

// UpdateCredentialRequest is the request body for updating a credential.
// Data replaces the stored field set wholesale when present.
type UpdateCredentialRequest struct {
	Provider  *string            `json:"provider,omitempty"`
	Name      *string            `json:"name,omitempty"`
	Data      *map[string]string `json:"data,omitempty"`
	IsDefault *bool              `json:"is_default,omitempty"`
}
