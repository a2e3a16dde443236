// Package credential resolves provider credentials from per-call overrides,
// stored configuration, and environment aliases.
package credential

import "fmt"

// Credential kinds named by MissingCredentialError.
const (
	KindAPIKey    = "api_key"
	KindBaseURL   = "base_url"
	KindProjectID = "project_id"
	KindSpaceID   = "space_id"
	KindAccessKey = "access_key"
)

// Credential holds every endpoint detail and secret a provider call may need.
// Values are plaintext here; encryption applies only at rest.
type Credential struct {
	Provider string
	Region   string

	APIKey  string
	Token   string
	BaseURL string

	APIVersion string
	ProjectID  string
	SpaceID    string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Require returns the value for the given kind, or a MissingCredentialError
// when no source supplied one.
func (c *Credential) Require(kind string) (string, error) {
	if c == nil {
		return "", &MissingCredentialError{Kind: kind}
	}

	var value string
	switch kind {
	case KindAPIKey:
		value = c.APIKey
	case KindBaseURL:
		value = c.BaseURL
	case KindProjectID:
		value = c.ProjectID
	case KindSpaceID:
		value = c.SpaceID
	case KindAccessKey:
		if c.AccessKeyID != "" && c.SecretAccessKey != "" {
			value = c.AccessKeyID
		}
	}

	if value == "" {
		return "", &MissingCredentialError{Provider: c.Provider, Kind: kind}
	}
	return value, nil
}

// Override carries per-call credential values. Set fields take precedence
// over every other source; empty fields fall through.
type Override struct {
	APIKey     string
	Token      string
	BaseURL    string
	APIVersion string
	ProjectID  string
	SpaceID    string
}

// MissingCredentialError reports that no source yielded a required value.
type MissingCredentialError struct {
	Provider string
	Kind     string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("no %s configured for provider %q", e.Kind, e.Provider)
}
