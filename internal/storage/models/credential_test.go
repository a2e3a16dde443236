package models

import "testing"

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "***"},
		{"short", "***"},
		{"exactly10!", "***"},
		{"sk-1234567890abcdef", "sk-123...cdef"},
		{"wx-abcdefghijklmnop", "wx-abc...mnop"},
	}

	for _, tt := range tests {
		result := MaskSecret(tt.input)
		if result != tt.expected {
			t.Errorf("MaskSecret(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestCredentialGet(t *testing.T) {
	var nilCred *Credential
	if got := nilCred.Get(DataAPIKey); got != "" {
		t.Errorf("expected empty string from nil credential, got %q", got)
	}

	cred := &Credential{}
	if got := cred.Get(DataAPIKey); got != "" {
		t.Errorf("expected empty string from nil data, got %q", got)
	}

	cred.Data = map[string]string{DataAPIKey: "sk-test"}
	if got := cred.APIKey(); got != "sk-test" {
		t.Errorf("expected %q, got %q", "sk-test", got)
	}
}

func TestCredentialToPreview(t *testing.T) {
	cred := &Credential{
		ID:       "cred-123",
		Provider: "watsonx",
		Name:     "Test Key",
		Data: map[string]string{
			DataProjectID: "proj-1",
			DataAPIKey:    "sk-1234567890abcdef",
		},
		IsDefault: true,
	}

	preview := cred.ToPreview()

	if preview.ID != cred.ID {
		t.Errorf("expected ID %q, got %q", cred.ID, preview.ID)
	}
	if preview.APIKeyPreview != "sk-123...cdef" {
		t.Errorf("expected masked key %q, got %q", "sk-123...cdef", preview.APIKeyPreview)
	}
	if len(preview.Fields) != 2 || preview.Fields[0] != DataAPIKey || preview.Fields[1] != DataProjectID {
		t.Errorf("expected sorted fields [api_key project_id], got %v", preview.Fields)
	}
	if !preview.IsDefault {
		t.Error("expected preview to be default")
	}

	// Without an api_key field there is nothing to mask
	tokenOnly := &Credential{
		ID:       "cred-456",
		Provider: "watsonx",
		Name:     "IAM Token",
		Data:     map[string]string{DataToken: "iam-token-value"},
	}
	if p := tokenOnly.ToPreview(); p.APIKeyPreview != "" {
		t.Errorf("expected empty preview, got %q", p.APIKeyPreview)
	}
}
