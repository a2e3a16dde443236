// Package adapter defines the contract provider adapters implement to turn
// canonical chat-completion requests into provider-native calls.
package adapter

import (
	"context"
	"net/http"

	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/types"
)

// Adapter is the transformation contract every provider implements. All
// methods are pure computations over their inputs except AuthHeaders, which
// may exchange an API key for a token over the network.
type Adapter interface {
	// Name returns the provider identifier.
	Name() string

	// SupportedParameters declares the canonical parameter names this
	// provider has a destination for, given the model.
	SupportedParameters(model string) []string

	// MapParameters converts canonical parameters to provider-native ones.
	// Unsupported keys are dropped, or rejected with an
	// UnsupportedParameterError when strict is set.
	MapParameters(params map[string]any, strict bool) (map[string]any, error)

	// BuildPayload converts the message sequence and native parameters
	// into the provider's request body.
	BuildPayload(model string, messages []types.Message, native map[string]any, cred *credential.Credential) (map[string]any, error)

	// BuildURL selects the provider endpoint for the model, switching
	// between streaming and non-streaming variants.
	BuildURL(base, model string, native map[string]any, stream bool, cred *credential.Credential) (string, error)

	// AuthHeaders adds authentication material to h and returns it.
	AuthHeaders(ctx context.Context, h http.Header, cred *credential.Credential) (http.Header, error)

	// ParseResponse converts a success response body into the canonical
	// shape.
	ParseResponse(status int, body []byte) (*types.ModelResponse, error)

	// ErrorFromStatus builds a typed error from a non-2xx provider
	// response.
	ErrorFromStatus(status int, body []byte, h http.Header) *types.ProviderError
}
