package types

import "encoding/json"

// CompletionRequest is the canonical chat-completion request accepted by the
// gateway. All optional fields use pointers to distinguish unset from zero;
// unset fields never appear in the parameter map handed to adapters.
type CompletionRequest struct {
	// Required fields
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	// Sampling parameters
	Temperature      *float64 `json:"temperature,omitempty"` // 0-2, default 1
	TopP             *float64 `json:"top_p,omitempty"`       // 0-1, default 1
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`  // -2 to 2, default 0
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"` // -2 to 2, default 0

	// Stopping conditions
	Stop Stop `json:"stop,omitempty"` // String or array of up to 4 strings

	// Streaming
	Stream bool `json:"stream,omitempty"`

	// Advanced options
	Seed *int   `json:"seed,omitempty"` // For deterministic outputs
	User string `json:"user,omitempty"` // End-user identifier

	// Extra holds caller-supplied parameters outside the typed set above.
	// They pass through the same per-provider mapping tables, so strict mode
	// rejects the ones a provider does not declare.
	Extra map[string]any `json:"-"`
}

// knownRequestKeys are the JSON keys consumed by the typed fields; everything
// else lands in Extra.
var knownRequestKeys = map[string]struct{}{
	"model": {}, "messages": {}, "temperature": {}, "top_p": {},
	"max_tokens": {}, "presence_penalty": {}, "frequency_penalty": {},
	"stop": {}, "stream": {}, "seed": {}, "user": {},
}

// UnmarshalJSON decodes the typed fields and captures unknown keys in Extra.
func (r *CompletionRequest) UnmarshalJSON(data []byte) error {
	type alias CompletionRequest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, val := range raw {
		if _, known := knownRequestKeys[key]; known {
			continue
		}
		var v any
		if err := json.Unmarshal(val, &v); err != nil {
			continue
		}
		if a.Extra == nil {
			a.Extra = make(map[string]any)
		}
		a.Extra[key] = v
	}

	*r = CompletionRequest(a)
	return nil
}

// CanonicalParams materializes the optional parameters that were actually
// supplied, keyed by canonical name. Unset fields are absent, never nil.
func (r *CompletionRequest) CanonicalParams() map[string]any {
	params := make(map[string]any)

	if r.Temperature != nil {
		params["temperature"] = *r.Temperature
	}
	if r.TopP != nil {
		params["top_p"] = *r.TopP
	}
	if r.MaxTokens != nil {
		params["max_tokens"] = *r.MaxTokens
	}
	if r.PresencePenalty != nil {
		params["presence_penalty"] = *r.PresencePenalty
	}
	if r.FrequencyPenalty != nil {
		params["frequency_penalty"] = *r.FrequencyPenalty
	}
	if len(r.Stop.Values) > 0 {
		params["stop"] = r.Stop.Values
	}
	if r.Stream {
		params["stream"] = true
	}
	if r.Seed != nil {
		params["seed"] = *r.Seed
	}
	if r.User != "" {
		params["user"] = r.User
	}

	for key, val := range r.Extra {
		if _, taken := params[key]; !taken {
			params[key] = val
		}
	}

	return params
}

// IsStreaming reports whether this is a streaming request.
func (r *CompletionRequest) IsStreaming() bool {
	return r.Stream
}

// Stop represents stop sequences that can be a string or array.
type Stop struct {
	Values []string
}

// MarshalJSON emits a bare string for a single sequence, an array otherwise.
func (s Stop) MarshalJSON() ([]byte, error) {
	if len(s.Values) == 0 {
		return []byte("null"), nil
	}
	if len(s.Values) == 1 {
		return json.Marshal(s.Values[0])
	}
	return json.Marshal(s.Values)
}

// UnmarshalJSON accepts a string or an array of strings.
func (s *Stop) UnmarshalJSON(data []byte) error {
	s.Values = nil
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		s.Values = []string{single}
		return nil
	}
	return json.Unmarshal(data, &s.Values)
}
