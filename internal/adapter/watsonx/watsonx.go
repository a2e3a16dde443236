// Package watsonx adapts canonical chat-completion requests to the IBM
// watsonx.ai text generation API.
package watsonx

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/modelgate/modelgate/internal/adapter"
	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/types"
)

const (
	// DefaultAPIVersion is used when the caller supplies no api_version.
	DefaultAPIVersion = "2024-03-13"

	// DeploymentPrefix marks model identifiers that address a provisioned
	// deployment instead of a named model.
	DeploymentPrefix = "deployment/"
)

// Endpoint templates relative to the service base URL.
const (
	endpointGeneration       = "/ml/v1/text/generation"
	endpointGenerationStream = "/ml/v1/text/generation_stream"
	endpointDeployment       = "/ml/v1/deployments/%s/text/generation"
	endpointDeploymentStream = "/ml/v1/deployments/%s/text/generation_stream"
)

// table maps canonical parameters to watsonx text generation parameters.
// frequency_penalty copies its value onto repetition_penalty unchanged even
// though the two use different scales; callers depend on the pass-through.
var table = adapter.Table{
	"temperature":       {Native: "temperature", Dest: adapter.DestTopLevel},
	"max_tokens":        {Native: "max_new_tokens", Dest: adapter.DestTopLevel},
	"top_p":             {Native: "top_p", Dest: adapter.DestTopLevel},
	"frequency_penalty": {Native: "repetition_penalty", Dest: adapter.DestTopLevel},
	"stop":              {Native: "stop_sequences", Dest: adapter.DestTopLevel},
	"seed":              {Native: "random_seed", Dest: adapter.DestTopLevel},
	"stream":            {Native: "stream", Dest: adapter.DestTopLevel},
	"moderations":       {Native: "moderations", Dest: adapter.DestTopLevel},
	"api_version":       {Native: "api_version", Dest: adapter.DestTopLevel},

	"decoding_method":       {Native: "decoding_method", Dest: adapter.DestExtraBody},
	"min_tokens":            {Native: "min_new_tokens", Dest: adapter.DestExtraBody},
	"top_k":                 {Native: "top_k", Dest: adapter.DestExtraBody},
	"truncate_input_tokens": {Native: "truncate_input_tokens", Dest: adapter.DestExtraBody},
	"length_penalty":        {Native: "length_penalty", Dest: adapter.DestExtraBody},
	"time_limit":            {Native: "time_limit", Dest: adapter.DestExtraBody},
	"return_options":        {Native: "return_options", Dest: adapter.DestExtraBody},
}

// Adapter implements the watsonx.ai text generation provider.
type Adapter struct {
	iam *iamClient
}

// New creates the adapter. The client is used for IAM token issuance; nil
// selects a default client.
func New(client *http.Client) *Adapter {
	return &Adapter{iam: newIAMClient(client)}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string { return "watsonx" }

// SupportedParameters returns the canonical parameters with a declared
// destination, independent of model.
func (a *Adapter) SupportedParameters(model string) []string {
	return table.Keys()
}

// MapParameters converts canonical parameters to watsonx native ones.
func (a *Adapter) MapParameters(params map[string]any, strict bool) (map[string]any, error) {
	return adapter.MapWithTable(a.Name(), table, params, strict)
}

// BuildPayload assembles the text generation request body. Extra-body
// parameters flatten into the parameters object; moderations is lifted to
// the payload top level. Named models carry model_id and project_id, while
// deployment-addressed models carry neither.
func (a *Adapter) BuildPayload(model string, messages []types.Message, native map[string]any, cred *credential.Credential) (map[string]any, error) {
	parameters := make(map[string]any)
	moderations := map[string]any{}

	for key, value := range native {
		switch key {
		case "stream", "api_version":
			// Consumed by BuildURL, not part of the generation payload.
		case "moderations":
			if m, ok := value.(map[string]any); ok {
				moderations = m
			}
		case adapter.ExtraBodyKey:
			if extra, ok := value.(map[string]any); ok {
				for k, v := range extra {
					parameters[k] = v
				}
			}
		default:
			parameters[key] = value
		}
	}

	payload := map[string]any{
		"input":       flattenPrompt(messages),
		"moderations": moderations,
		"parameters":  parameters,
	}

	if !strings.HasPrefix(model, DeploymentPrefix) {
		projectID, err := cred.Require(credential.KindProjectID)
		if err != nil {
			return nil, err
		}
		payload["model_id"] = model
		payload["project_id"] = projectID
	}

	return payload, nil
}

// BuildURL selects the generation endpoint, switching on streaming and on
// deployment addressing, and appends the required version query parameter.
func (a *Adapter) BuildURL(base, model string, native map[string]any, stream bool, cred *credential.Credential) (string, error) {
	if base == "" && cred != nil {
		base = cred.BaseURL
	}
	if base == "" {
		return "", &credential.MissingCredentialError{Provider: a.Name(), Kind: credential.KindBaseURL}
	}

	var endpoint string
	if deploymentID, ok := strings.CutPrefix(model, DeploymentPrefix); ok {
		if _, err := cred.Require(credential.KindSpaceID); err != nil {
			return "", err
		}
		if stream {
			endpoint = fmt.Sprintf(endpointDeploymentStream, deploymentID)
		} else {
			endpoint = fmt.Sprintf(endpointDeployment, deploymentID)
		}
	} else {
		endpoint = endpointGeneration
		if stream {
			endpoint = endpointGenerationStream
		}
	}

	version := DefaultAPIVersion
	if v, ok := native["api_version"].(string); ok && v != "" {
		version = v
	} else if cred != nil && cred.APIVersion != "" {
		version = cred.APIVersion
	}

	return strings.TrimRight(base, "/") + endpoint + "?version=" + url.QueryEscape(version), nil
}

// flattenPrompt renders the message sequence as a single granite-style
// prompt string with a trailing assistant cue.
func flattenPrompt(messages []types.Message) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			b.WriteString("<|system|>\n")
		case types.RoleAssistant:
			b.WriteString("<|assistant|>\n")
		default:
			b.WriteString("<|user|>\n")
		}
		b.WriteString(m.Content.String())
		b.WriteString("\n")
	}
	b.WriteString("<|assistant|>\n")
	return b.String()
}
