package passthrough

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/modelgate/modelgate/internal/credential"
)

var providerEnvVars = []string{
	"OPENAI_API_KEY",
	"AZURE_API_KEY",
	"AZURE_API_BASE",
	"ANTHROPIC_API_KEY",
	"GEMINI_API_KEY",
	"COHERE_API_KEY",
	"ASSEMBLYAI_API_KEY",
	"ASSEMBLYAI_EU_API_KEY",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"AWS_REGION_NAME",
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, name := range providerEnvVars {
		t.Setenv(name, "")
	}
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	resolver, err := credential.NewResolver(nil, nil, 0)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return NewBuilder(resolver)
}

func inbound(method, target string, body []byte) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	return httptest.NewRequest(method, target, reader)
}

func TestBuildOpenAI(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-live")

	r := inbound(http.MethodPost, "/passthrough/openai/v1/audio/transcriptions?model=whisper-1", nil)
	r.Header.Set("Authorization", "Bearer gateway-key")
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Request-Source", "cli")

	b := newTestBuilder(t)
	d, err := b.Build(context.Background(), "openai", "v1/audio/transcriptions", r, []byte(`{}`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if want := "https://api.openai.com/v1/audio/transcriptions?model=whisper-1"; d.URL != want {
		t.Errorf("URL = %q, want %q", d.URL, want)
	}
	if got := d.Header.Get("Authorization"); got != "Bearer sk-live" {
		t.Errorf("Authorization = %q, want bearer with provider key", got)
	}
	if got := d.Header.Get("api-key"); got != "sk-live" {
		t.Errorf("api-key = %q, want %q", got, "sk-live")
	}
	if got := d.Header.Get("X-Request-Source"); got != "cli" {
		t.Errorf("X-Request-Source = %q, want forwarded", got)
	}
	if d.Header.Get("Host") != "" || d.Header.Get("Content-Length") != "" {
		t.Error("hop-by-hop headers must not be forwarded")
	}
	if d.Provider != "openai" {
		t.Errorf("Provider = %q, want %q", d.Provider, "openai")
	}
	if d.Stream {
		t.Error("Stream = true, want false")
	}
}

func TestBuildStreamURLMarker(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-123")

	b := newTestBuilder(t)

	r := inbound(http.MethodPost, "/x", nil)
	d, err := b.Build(context.Background(), "gemini", "v1beta/models/gemini-pro:streamGenerateContent", r, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !d.Stream {
		t.Error("Stream = false for streamGenerateContent path, want true")
	}

	// A marker in the query string alone never flips the call to streaming.
	r = inbound(http.MethodGet, "/x?alt=stream", nil)
	d, err = b.Build(context.Background(), "gemini", "v1beta/models", r, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.Stream {
		t.Error("Stream = true from query-string marker, want false")
	}
}

func TestBuildAzure(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AZURE_API_KEY", "az-key")
	t.Setenv("AZURE_API_BASE", "https://my-resource.openai.azure.com/")

	r := inbound(http.MethodPost, "/x?api-version=2024-02-01", nil)
	b := newTestBuilder(t)
	d, err := b.Build(context.Background(), "azure", "openai/deployments/gpt4/chat/completions", r, []byte(`{}`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "https://my-resource.openai.azure.com/openai/deployments/gpt4/chat/completions?api-version=2024-02-01"
	if d.URL != want {
		t.Errorf("URL = %q, want %q", d.URL, want)
	}
	if got := d.Header.Get("Authorization"); got != "Bearer az-key" {
		t.Errorf("Authorization = %q, want bearer", got)
	}
	if got := d.Header.Get("api-key"); got != "az-key" {
		t.Errorf("api-key = %q, want %q", got, "az-key")
	}
}

func TestBuildAzureMissingBase(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AZURE_API_KEY", "az-key")

	r := inbound(http.MethodPost, "/x", nil)
	_, err := newTestBuilder(t).Build(context.Background(), "azure", "openai/deployments/gpt4/chat/completions", r, nil)

	var mce *MissingUpstreamConfigError
	if !errors.As(err, &mce) {
		t.Fatalf("err = %v, want MissingUpstreamConfigError", err)
	}
	if mce.Provider != "azure" || mce.Missing != "base_url" {
		t.Errorf("error = %+v, want azure base_url", mce)
	}
}

func TestBuildAnthropicBodySniff(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")

	tests := []struct {
		name   string
		method string
		body   []byte
		want   bool
	}{
		{"stream true", http.MethodPost, []byte(`{"model":"claude-3","stream":true}`), true},
		{"stream false", http.MethodPost, []byte(`{"model":"claude-3","stream":false}`), false},
		{"stream absent", http.MethodPost, []byte(`{"model":"claude-3"}`), false},
		{"non-json body", http.MethodPost, []byte("model=claude-3"), false},
		{"empty body", http.MethodPost, nil, false},
		{"get never sniffed", http.MethodGet, []byte(`{"stream":true}`), false},
	}

	b := newTestBuilder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := inbound(tt.method, "/x", tt.body)
			r.Header.Set("anthropic-version", "2023-06-01")

			d, err := b.Build(context.Background(), "anthropic", "v1/messages", r, tt.body)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if d.Stream != tt.want {
				t.Errorf("Stream = %v, want %v", d.Stream, tt.want)
			}
			if got := d.Header.Get("x-api-key"); got != "ant-key" {
				t.Errorf("x-api-key = %q, want %q", got, "ant-key")
			}
			if got := d.Header.Get("Authorization"); got != "" {
				t.Errorf("Authorization = %q, want empty", got)
			}
			if got := d.Header.Get("anthropic-version"); got != "2023-06-01" {
				t.Errorf("anthropic-version = %q, want forwarded", got)
			}
		})
	}
}

func TestBuildGeminiQueryKey(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-123")

	r := inbound(http.MethodPost, "/x?key=caller-key&alt=sse", nil)
	d, err := newTestBuilder(t).Build(context.Background(), "gemini", "v1beta/models/gemini-pro:generateContent", r, []byte(`{}`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	u, err := url.Parse(d.URL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	if got := u.Query().Get("key"); got != "g-123" {
		t.Errorf("key = %q, want injected value to win", got)
	}
	if got := u.Query().Get("alt"); got != "sse" {
		t.Errorf("alt = %q, want caller value forwarded", got)
	}
	if d.Header.Get("Authorization") != "" {
		t.Error("gemini must not receive an Authorization header")
	}
}

func TestBuildCohere(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("COHERE_API_KEY", "co-key")

	r := inbound(http.MethodPost, "/x", nil)
	d, err := newTestBuilder(t).Build(context.Background(), "cohere", "v2/chat", r, []byte(`{}`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if want := "https://api.cohere.com/v2/chat"; d.URL != want {
		t.Errorf("URL = %q, want %q", d.URL, want)
	}
	if got := d.Header.Get("Authorization"); got != "Bearer co-key" {
		t.Errorf("Authorization = %q, want bearer", got)
	}
}

func TestBuildAssemblyAI(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-us")
	t.Setenv("ASSEMBLYAI_EU_API_KEY", "aai-eu")

	b := newTestBuilder(t)

	r := inbound(http.MethodPost, "/x", nil)
	d, err := b.Build(context.Background(), "assemblyai", "v2/transcript", r, []byte(`{}`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.HasPrefix(d.URL, "https://api.assemblyai.com/") {
		t.Errorf("URL = %q, want default host", d.URL)
	}
	if got := d.Header.Get("Authorization"); got != "aai-us" {
		t.Errorf("Authorization = %q, want raw key without scheme", got)
	}
	if d.Region != "" {
		t.Errorf("Region = %q, want empty", d.Region)
	}

	d, err = b.Build(context.Background(), "eu.assemblyai", "v2/transcript", r, []byte(`{}`))
	if err != nil {
		t.Fatalf("Build eu: %v", err)
	}
	if !strings.HasPrefix(d.URL, "https://api.eu.assemblyai.com/") {
		t.Errorf("URL = %q, want EU host", d.URL)
	}
	if got := d.Header.Get("Authorization"); got != "aai-eu" {
		t.Errorf("Authorization = %q, want EU key", got)
	}
	if d.Provider != "assemblyai" || d.Region != "eu" {
		t.Errorf("Provider/Region = %q/%q, want assemblyai/eu", d.Provider, d.Region)
	}
}

func TestBuildAssemblyAIEURequiresOwnKey(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-us")

	r := inbound(http.MethodPost, "/x", nil)
	_, err := newTestBuilder(t).Build(context.Background(), "eu.assemblyai", "v2/transcript", r, nil)

	var mce *credential.MissingCredentialError
	if !errors.As(err, &mce) {
		t.Fatalf("err = %v, want MissingCredentialError", err)
	}
	if mce.Kind != credential.KindAPIKey {
		t.Errorf("Kind = %q, want %q", mce.Kind, credential.KindAPIKey)
	}
}

func TestBuildBedrock(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "topsecret")
	t.Setenv("AWS_SESSION_TOKEN", "session-tok")
	t.Setenv("AWS_REGION_NAME", "us-west-2")

	b := newTestBuilder(t)
	b.signer.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }

	r := inbound(http.MethodPost, "/x?debug=1", nil)
	r.Header.Set("X-Request-Source", "cli")
	body := []byte(`{"inputText":"hello"}`)

	d, err := b.Build(context.Background(), "bedrock", "model/anthropic.claude-v2/invoke", r, body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Inbound query parameters are dropped for signed requests.
	if want := "https://bedrock-runtime.us-west-2.amazonaws.com/model/anthropic.claude-v2/invoke"; d.URL != want {
		t.Errorf("URL = %q, want %q", d.URL, want)
	}

	auth := d.Header.Get("Authorization")
	wantPrefix := "AWS4-HMAC-SHA256 Credential=AKIATEST/20240115/us-west-2/bedrock/aws4_request"
	if !strings.HasPrefix(auth, wantPrefix) {
		t.Errorf("Authorization = %q, want prefix %q", auth, wantPrefix)
	}
	if !strings.Contains(auth, "SignedHeaders=") || !strings.Contains(auth, "Signature=") {
		t.Errorf("Authorization = %q, want signed header list and signature", auth)
	}
	if got := d.Header.Get("X-Amz-Date"); got != "20240115T120000Z" {
		t.Errorf("X-Amz-Date = %q, want fixed clock value", got)
	}
	if got := d.Header.Get("X-Amz-Security-Token"); got != "session-tok" {
		t.Errorf("X-Amz-Security-Token = %q, want %q", got, "session-tok")
	}
	if got := d.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if d.Header.Get("X-Request-Source") != "" {
		t.Error("inbound headers must not leak into the signed request")
	}
	if !bytes.Equal(d.Body, body) {
		t.Error("body changed during signing")
	}
	if d.Region != "us-west-2" {
		t.Errorf("Region = %q, want us-west-2", d.Region)
	}
}

func TestBuildBedrockSigningStable(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "topsecret")
	t.Setenv("AWS_REGION_NAME", "us-east-1")

	b := newTestBuilder(t)
	b.signer.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }

	body := []byte(`{"inputText":"hello"}`)
	first, err := b.Build(context.Background(), "bedrock", "model/amazon.titan-text-express-v1/invoke", inbound(http.MethodPost, "/x", nil), body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := b.Build(context.Background(), "bedrock", "model/amazon.titan-text-express-v1/invoke", inbound(http.MethodPost, "/x", nil), body)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first.Header.Get("Authorization") != second.Header.Get("Authorization") {
		t.Error("same input under a fixed clock must sign identically")
	}
}

func TestBuildBedrockAgentHost(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "topsecret")
	t.Setenv("AWS_REGION_NAME", "eu-central-1")

	b := newTestBuilder(t)

	tests := []struct {
		path string
		host string
	}{
		{"model/anthropic.claude-v2/invoke", "bedrock-runtime.eu-central-1.amazonaws.com"},
		{"model/anthropic.claude-v2/invoke-with-response-stream", "bedrock-runtime.eu-central-1.amazonaws.com"},
		{"knowledgebases/kb-123/retrieve", "bedrock-agent-runtime.eu-central-1.amazonaws.com"},
		{"agents/agent-1/sessions/s1/text", "bedrock-agent-runtime.eu-central-1.amazonaws.com"},
		{"retrieveAndGenerate/", "bedrock-agent-runtime.eu-central-1.amazonaws.com"},
		{"rerank/models", "bedrock-agent-runtime.eu-central-1.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			d, err := b.Build(context.Background(), "bedrock", tt.path, inbound(http.MethodPost, "/x", nil), []byte(`{}`))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			u, err := url.Parse(d.URL)
			if err != nil {
				t.Fatalf("parse URL: %v", err)
			}
			if u.Host != tt.host {
				t.Errorf("host = %q, want %q", u.Host, tt.host)
			}
		})
	}
}

func TestBuildBedrockStreamMarker(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "topsecret")
	t.Setenv("AWS_REGION_NAME", "us-west-2")

	d, err := newTestBuilder(t).Build(context.Background(), "bedrock", "model/anthropic.claude-v2/invoke-with-response-stream", inbound(http.MethodPost, "/x", nil), []byte(`{}`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !d.Stream {
		t.Error("Stream = false for invoke-with-response-stream, want true")
	}
}

func TestBuildBedrockMissingRegion(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "topsecret")

	_, err := newTestBuilder(t).Build(context.Background(), "bedrock", "model/anthropic.claude-v2/invoke", inbound(http.MethodPost, "/x", nil), nil)

	var mce *MissingUpstreamConfigError
	if !errors.As(err, &mce) {
		t.Fatalf("err = %v, want MissingUpstreamConfigError", err)
	}
	if mce.Provider != "bedrock" || mce.Missing != "region" {
		t.Errorf("error = %+v, want bedrock region", mce)
	}
}

func TestBuildBedrockMissingKeys(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_REGION_NAME", "us-west-2")

	_, err := newTestBuilder(t).Build(context.Background(), "bedrock", "model/anthropic.claude-v2/invoke", inbound(http.MethodPost, "/x", nil), nil)

	var mce *credential.MissingCredentialError
	if !errors.As(err, &mce) {
		t.Fatalf("err = %v, want MissingCredentialError", err)
	}
	if mce.Kind != credential.KindAccessKey {
		t.Errorf("Kind = %q, want %q", mce.Kind, credential.KindAccessKey)
	}
}

func TestBuildUnknownProvider(t *testing.T) {
	clearProviderEnv(t)

	_, err := newTestBuilder(t).Build(context.Background(), "midjourney", "v1/imagine", inbound(http.MethodPost, "/x", nil), nil)

	var mce *MissingUpstreamConfigError
	if !errors.As(err, &mce) {
		t.Fatalf("err = %v, want MissingUpstreamConfigError", err)
	}
	if mce.Provider != "midjourney" || mce.Missing != "route" {
		t.Errorf("error = %+v, want midjourney route", mce)
	}
}

func TestBuildNormalizesPath(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("COHERE_API_KEY", "co-key")

	d, err := newTestBuilder(t).Build(context.Background(), "cohere", "/v2/chat", inbound(http.MethodPost, "/x", nil), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := "https://api.cohere.com/v2/chat"; d.URL != want {
		t.Errorf("URL = %q, want %q", d.URL, want)
	}
}

func TestProviders(t *testing.T) {
	names := Providers()
	if len(names) != len(routes) {
		t.Fatalf("Providers() returned %d names, want %d", len(names), len(routes))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Providers() not sorted: %v", names)
		}
	}
	seen := map[string]bool{}
	for _, name := range names {
		seen[name] = true
	}
	for _, want := range []string{"openai", "eu.assemblyai", "bedrock"} {
		if !seen[want] {
			t.Errorf("Providers() missing %q", want)
		}
	}
}
