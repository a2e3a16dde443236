// Package openaicompat adapts canonical requests to any provider speaking
// the OpenAI chat completions wire format.
package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/modelgate/modelgate/internal/adapter"
	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/types"
)

const chatCompletionsPath = "/chat/completions"

// table is nearly an identity map; canonical and native names coincide and
// nothing lands in an extra body.
var table = adapter.Table{
	"temperature":           {Native: "temperature", Dest: adapter.DestTopLevel},
	"max_tokens":            {Native: "max_tokens", Dest: adapter.DestTopLevel},
	"max_completion_tokens": {Native: "max_completion_tokens", Dest: adapter.DestTopLevel},
	"top_p":                 {Native: "top_p", Dest: adapter.DestTopLevel},
	"frequency_penalty":     {Native: "frequency_penalty", Dest: adapter.DestTopLevel},
	"presence_penalty":      {Native: "presence_penalty", Dest: adapter.DestTopLevel},
	"stop":                  {Native: "stop", Dest: adapter.DestTopLevel},
	"seed":                  {Native: "seed", Dest: adapter.DestTopLevel},
	"stream":                {Native: "stream", Dest: adapter.DestTopLevel},
	"stream_options":        {Native: "stream_options", Dest: adapter.DestTopLevel},
	"user":                  {Native: "user", Dest: adapter.DestTopLevel},
	"n":                     {Native: "n", Dest: adapter.DestTopLevel},
	"logprobs":              {Native: "logprobs", Dest: adapter.DestTopLevel},
	"top_logprobs":          {Native: "top_logprobs", Dest: adapter.DestTopLevel},
	"logit_bias":            {Native: "logit_bias", Dest: adapter.DestTopLevel},
	"response_format":       {Native: "response_format", Dest: adapter.DestTopLevel},
	"tools":                 {Native: "tools", Dest: adapter.DestTopLevel},
	"tool_choice":           {Native: "tool_choice", Dest: adapter.DestTopLevel},
	"parallel_tool_calls":   {Native: "parallel_tool_calls", Dest: adapter.DestTopLevel},
}

// Adapter implements an OpenAI-compatible provider. One instance serves one
// provider identity, so openai and openrouter register separately.
type Adapter struct {
	name        string
	defaultBase string
}

// New creates an adapter with the provider identifier and the base URL used
// when neither the credential nor the caller supplies one.
func New(name, defaultBase string) *Adapter {
	return &Adapter{name: name, defaultBase: defaultBase}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string { return a.name }

// SupportedParameters returns the declared canonical parameters, independent
// of model.
func (a *Adapter) SupportedParameters(model string) []string {
	return table.Keys()
}

// MapParameters converts canonical parameters; names pass through unchanged.
func (a *Adapter) MapParameters(params map[string]any, strict bool) (map[string]any, error) {
	return adapter.MapWithTable(a.name, table, params, strict)
}

// BuildPayload assembles the chat completions body: model, messages, and all
// native parameters at the top level.
func (a *Adapter) BuildPayload(model string, messages []types.Message, native map[string]any, cred *credential.Credential) (map[string]any, error) {
	payload := make(map[string]any, len(native)+2)
	for key, value := range native {
		payload[key] = value
	}
	payload["model"] = model
	payload["messages"] = messages
	return payload, nil
}

// BuildURL returns the chat completions endpoint. Streaming uses the same
// endpoint; the stream flag travels in the body.
func (a *Adapter) BuildURL(base, model string, native map[string]any, stream bool, cred *credential.Credential) (string, error) {
	if base == "" && cred != nil {
		base = cred.BaseURL
	}
	if base == "" {
		base = a.defaultBase
	}
	if base == "" {
		return "", &credential.MissingCredentialError{Provider: a.name, Kind: credential.KindBaseURL}
	}
	return strings.TrimRight(base, "/") + chatCompletionsPath, nil
}

// AuthHeaders sets the JSON content type and a bearer token.
func (a *Adapter) AuthHeaders(ctx context.Context, h http.Header, cred *credential.Credential) (http.Header, error) {
	if h == nil {
		h = make(http.Header)
	}
	h.Set("Content-Type", "application/json")

	apiKey, err := cred.Require(credential.KindAPIKey)
	if err != nil {
		return nil, err
	}
	h.Set("Authorization", "Bearer "+apiKey)
	return h, nil
}

// ParseResponse extracts the first choice from an OpenAI-format completion.
func (a *Adapter) ParseResponse(status int, body []byte) (*types.ModelResponse, error) {
	var parsed types.ChatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &types.ResponseParseError{Provider: a.name, StatusCode: status, Body: body, Err: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &types.ResponseParseError{
			Provider:   a.name,
			StatusCode: status,
			Body:       body,
			Err:        errors.New("response carries no choices"),
		}
	}

	choice := parsed.Choices[0]
	role := choice.Message.Role
	if role == "" {
		role = types.RoleAssistant
	}

	return &types.ModelResponse{
		Role:         role,
		Content:      choice.Message.Content.String(),
		FinishReason: choice.FinishReason,
		Model:        parsed.Model,
		Usage:        parsed.Usage,
	}, nil
}

// ErrorFromStatus extracts the OpenAI error envelope message when present.
func (a *Adapter) ErrorFromStatus(status int, body []byte, h http.Header) *types.ProviderError {
	message := strings.TrimSpace(string(body))

	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	return &types.ProviderError{
		Provider:   a.name,
		StatusCode: status,
		Message:    message,
		Headers:    h,
	}
}
