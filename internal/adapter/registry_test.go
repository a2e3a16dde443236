package adapter

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/types"
)

// stubAdapter implements Adapter with just enough behavior for registry
// resolution tests.
type stubAdapter struct {
	name string
}

func (s *stubAdapter) Name() string                        { return s.name }
func (s *stubAdapter) SupportedParameters(string) []string { return nil }
func (s *stubAdapter) MapParameters(params map[string]any, strict bool) (map[string]any, error) {
	return params, nil
}
func (s *stubAdapter) BuildPayload(string, []types.Message, map[string]any, *credential.Credential) (map[string]any, error) {
	return nil, nil
}
func (s *stubAdapter) BuildURL(string, string, map[string]any, bool, *credential.Credential) (string, error) {
	return "", nil
}
func (s *stubAdapter) AuthHeaders(_ context.Context, h http.Header, _ *credential.Credential) (http.Header, error) {
	return h, nil
}
func (s *stubAdapter) ParseResponse(int, []byte) (*types.ModelResponse, error) { return nil, nil }
func (s *stubAdapter) ErrorFromStatus(int, []byte, http.Header) *types.ProviderError {
	return nil
}

func newTestRegistry(defaultProvider string, names ...string) *Registry {
	r := NewRegistry(defaultProvider)
	for _, name := range names {
		r.Register(&stubAdapter{name: name})
	}
	return r
}

func TestRegistryResolve(t *testing.T) {
	tests := []struct {
		name         string
		defaultProv  string
		registered   []string
		model        string
		wantProvider string
		wantModel    string
	}{
		{
			name:         "registered prefix stripped",
			defaultProv:  "openai",
			registered:   []string{"openai", "watsonx"},
			model:        "watsonx/granite-13b",
			wantProvider: "watsonx",
			wantModel:    "granite-13b",
		},
		{
			name:         "only first segment stripped",
			defaultProv:  "openai",
			registered:   []string{"openai", "watsonx"},
			model:        "watsonx/deployment/abc123",
			wantProvider: "watsonx",
			wantModel:    "deployment/abc123",
		},
		{
			name:         "unregistered prefix preserved for default",
			defaultProv:  "watsonx",
			registered:   []string{"watsonx"},
			model:        "deployment/abc123",
			wantProvider: "watsonx",
			wantModel:    "deployment/abc123",
		},
		{
			name:         "no prefix falls back to default",
			defaultProv:  "openai",
			registered:   []string{"openai", "watsonx"},
			model:        "gpt-4o",
			wantProvider: "openai",
			wantModel:    "gpt-4o",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(tt.defaultProv, tt.registered...)

			a, model, err := r.Resolve(tt.model)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if a.Name() != tt.wantProvider {
				t.Errorf("provider = %q, want %q", a.Name(), tt.wantProvider)
			}
			if model != tt.wantModel {
				t.Errorf("model = %q, want %q", model, tt.wantModel)
			}
		})
	}
}

func TestRegistryResolveAlias(t *testing.T) {
	r := newTestRegistry("openai", "openai", "watsonx")
	r.Alias("ibm", "watsonx")

	a, model, err := r.Resolve("ibm/granite-13b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if a.Name() != "watsonx" {
		t.Errorf("provider = %q, want watsonx", a.Name())
	}
	if model != "granite-13b" {
		t.Errorf("model = %q, want granite-13b", model)
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Run("no default configured", func(t *testing.T) {
		r := newTestRegistry("", "watsonx")

		_, _, err := r.Resolve("gpt-4o")
		var unknown *UnknownProviderError
		if !errors.As(err, &unknown) {
			t.Fatalf("error = %v, want UnknownProviderError", err)
		}
	})

	t.Run("default not registered", func(t *testing.T) {
		r := newTestRegistry("openai", "watsonx")

		_, _, err := r.Resolve("gpt-4o")
		var unknown *UnknownProviderError
		if !errors.As(err, &unknown) {
			t.Fatalf("error = %v, want UnknownProviderError", err)
		}
		if unknown.Provider != "openai" {
			t.Errorf("Provider = %q, want openai", unknown.Provider)
		}
	})

	t.Run("unknown prefix named when no default", func(t *testing.T) {
		r := newTestRegistry("", "watsonx")

		_, _, err := r.Resolve("nope/model-1")
		var unknown *UnknownProviderError
		if !errors.As(err, &unknown) {
			t.Fatalf("error = %v, want UnknownProviderError", err)
		}
		if unknown.Provider != "nope" {
			t.Errorf("Provider = %q, want nope", unknown.Provider)
		}
	})
}

func TestRegistryGet(t *testing.T) {
	r := newTestRegistry("openai", "openai", "watsonx")
	r.Alias("ibm", "watsonx")

	a, err := r.Get("ibm")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if a.Name() != "watsonx" {
		t.Errorf("provider = %q, want watsonx", a.Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("Get(missing) should fail")
	}
}

func TestRegistryProviders(t *testing.T) {
	r := newTestRegistry("openai", "watsonx", "openai", "anthropic")

	want := []string{"anthropic", "openai", "watsonx"}
	if got := r.Providers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Providers = %v, want %v", got, want)
	}
}
