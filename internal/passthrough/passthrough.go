// Package passthrough builds fully prepared upstream requests for native
// provider REST calls, injecting gateway-held credentials.
package passthrough

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/modelgate/modelgate/internal/credential"
)

// authScheme selects how the provider credential is injected.
type authScheme int

const (
	// authBearer sets "Authorization: Bearer <key>".
	authBearer authScheme = iota

	// authDualHeader sets both the bearer form and an api-key header.
	authDualHeader

	// authAPIKeyHeader sets "x-api-key: <key>".
	authAPIKeyHeader

	// authQueryParam injects the key as the "key" query parameter.
	authQueryParam

	// authRawHeader sets "Authorization: <key>" without a scheme prefix.
	authRawHeader

	// authSigV4 signs the request with AWS Signature Version 4.
	authSigV4
)

// streamMode selects how a call is classified as streaming.
type streamMode int

const (
	// streamURLMarker treats any composed URL containing "stream" as
	// streaming. The check runs before the query string is attached.
	streamURLMarker streamMode = iota

	// streamBodySniff inspects a POST JSON body for a truthy "stream" key.
	// Absent or non-JSON bodies classify as non-streaming; GET bodies are
	// never inspected.
	streamBodySniff
)

// route statically describes one upstream target.
type route struct {
	provider  string
	region    string
	baseURL   string
	auth      authScheme
	stream    streamMode
	dropQuery bool
}

// routes maps the inbound provider path segment to its upstream description.
// The eu.assemblyai segment matches the EU route naming callers already use.
// azure resolves its base from the credential; bedrock composes a regional
// host per call.
var routes = map[string]route{
	"openai":        {provider: "openai", baseURL: "https://api.openai.com", auth: authDualHeader},
	"azure":         {provider: "azure", auth: authDualHeader},
	"anthropic":     {provider: "anthropic", baseURL: "https://api.anthropic.com", auth: authAPIKeyHeader, stream: streamBodySniff},
	"gemini":        {provider: "gemini", baseURL: "https://generativelanguage.googleapis.com", auth: authQueryParam},
	"cohere":        {provider: "cohere", baseURL: "https://api.cohere.com", auth: authBearer},
	"assemblyai":    {provider: "assemblyai", baseURL: "https://api.assemblyai.com", auth: authRawHeader, stream: streamBodySniff},
	"eu.assemblyai": {provider: "assemblyai", region: "eu", baseURL: "https://api.eu.assemblyai.com", auth: authRawHeader, stream: streamBodySniff},
	"bedrock":       {provider: "bedrock", auth: authSigV4, dropQuery: true},
}

// bedrockAgentMarkers route matching paths to the agent-runtime host.
var bedrockAgentMarkers = []string{
	"agents/",
	"knowledgebases/",
	"flows/",
	"retrieveAndGenerate/",
	"rerank/",
	"generateQuery/",
	"optimize-prompt/",
}

// Hop-by-hop and gateway-auth headers never forwarded upstream.
var skipHeaders = map[string]bool{
	"Content-Length": true,
	"Connection":     true,
	"Host":           true,
	"Authorization":  true,
}

// Descriptor is a fully prepared outbound request. It is complete once
// returned: the executor adds no auth material and never rebuilds the body.
type Descriptor struct {
	Method   string
	URL      string
	Header   http.Header
	Body     []byte
	Stream   bool
	Provider string
	Region   string
}

// Builder prepares pass-through descriptors. It holds no per-request state
// and is safe for concurrent use.
type Builder struct {
	resolver *credential.Resolver
	signer   *sigV4Signer
}

// NewBuilder creates a builder over the given credential resolver.
func NewBuilder(resolver *credential.Resolver) *Builder {
	return &Builder{resolver: resolver, signer: newSigV4Signer()}
}

// Providers returns the provider path segments with a registered route,
// sorted.
func Providers() []string {
	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves the route and credential for a provider path segment and
// prepares the outbound request. Every failure happens here, before any
// network call.
func (b *Builder) Build(ctx context.Context, providerID, path string, r *http.Request, body []byte) (*Descriptor, error) {
	rt, ok := routes[providerID]
	if !ok {
		return nil, &MissingUpstreamConfigError{Provider: providerID, Missing: "route"}
	}

	cred, err := b.resolver.Resolve(rt.provider, rt.region, nil)
	if err != nil {
		return nil, err
	}

	base, err := rt.resolveBase(path, cred)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := strings.TrimRight(base, "/") + path

	// Classification happens on the composed URL before the query string is
	// attached, so caller-supplied query values never flip a call to
	// streaming.
	stream := rt.isStreaming(target, r.Method, body)

	query := url.Values{}
	if !rt.dropQuery {
		query = r.URL.Query()
	}

	header := sanitizeHeaders(r.Header)
	if rt.auth == authSigV4 {
		// The signed set is exactly what bedrock expects; inbound headers
		// would invalidate the signature.
		header = http.Header{}
		header.Set("Content-Type", "application/json")
	}

	if err := rt.injectAuth(header, query, cred); err != nil {
		return nil, err
	}

	full := target
	if encoded := query.Encode(); encoded != "" {
		full = target + "?" + encoded
	}

	d := &Descriptor{
		Method:   r.Method,
		URL:      full,
		Header:   header,
		Body:     body,
		Stream:   stream,
		Provider: rt.provider,
		Region:   cred.Region,
	}

	if rt.auth == authSigV4 {
		if err := b.signer.sign(ctx, d, cred); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// resolveBase determines the upstream base URL for this call.
func (rt route) resolveBase(path string, cred *credential.Credential) (string, error) {
	switch rt.provider {
	case "azure":
		if cred.BaseURL == "" {
			return "", &MissingUpstreamConfigError{Provider: "azure", Missing: "base_url"}
		}
		return cred.BaseURL, nil
	case "bedrock":
		if cred.Region == "" {
			return "", &MissingUpstreamConfigError{Provider: "bedrock", Missing: "region"}
		}
		host := "bedrock-runtime"
		if isBedrockAgentPath(path) {
			host = "bedrock-agent-runtime"
		}
		return fmt.Sprintf("https://%s.%s.amazonaws.com", host, cred.Region), nil
	default:
		return rt.baseURL, nil
	}
}

func (rt route) isStreaming(target, method string, body []byte) bool {
	switch rt.stream {
	case streamBodySniff:
		if method != http.MethodPost || len(body) == 0 {
			return false
		}
		var parsed map[string]any
		if err := json.Unmarshal(body, &parsed); err != nil {
			return false
		}
		return isTruthy(parsed["stream"])
	default:
		return strings.Contains(target, "stream")
	}
}

func (rt route) injectAuth(header http.Header, query url.Values, cred *credential.Credential) error {
	if rt.auth == authSigV4 {
		// Signing covers auth; it runs after URL composition.
		return nil
	}

	key, err := cred.Require(credential.KindAPIKey)
	if err != nil {
		return err
	}

	switch rt.auth {
	case authDualHeader:
		header.Set("Authorization", "Bearer "+key)
		header.Set("api-key", key)
	case authAPIKeyHeader:
		header.Set("x-api-key", key)
	case authQueryParam:
		// Injected value wins over a same-named caller parameter.
		query.Set("key", key)
	case authRawHeader:
		header.Set("Authorization", key)
	default:
		header.Set("Authorization", "Bearer "+key)
	}
	return nil
}

func isBedrockAgentPath(path string) bool {
	for _, marker := range bedrockAgentMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

// isTruthy mirrors the loose classification callers rely on: booleans by
// value, numbers by non-zero, strings by non-empty.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	default:
		return false
	}
}

func sanitizeHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for name, values := range in {
		if skipHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			out.Add(name, v)
		}
	}
	return out
}

// MissingUpstreamConfigError reports a pass-through call whose upstream
// cannot be determined. It is raised before any network I/O.
type MissingUpstreamConfigError struct {
	Provider string
	Missing  string
}

func (e *MissingUpstreamConfigError) Error() string {
	return fmt.Sprintf("pass-through provider %q is missing %s", e.Provider, e.Missing)
}
