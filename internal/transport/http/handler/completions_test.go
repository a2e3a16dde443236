package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/types"
)

const upstreamCompletion = `{
	"id": "upstream-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-2024",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "Hello there"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

func postCompletion(h *Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ChatCompletions(rec, req)
	return rec
}

func TestChatCompletions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test-key-12345" {
			t.Errorf("expected bearer auth, got %q", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode upstream payload: %v", err)
		}
		if payload["model"] != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %v", payload["model"])
		}
		if payload["temperature"] != 0.7 {
			t.Errorf("expected temperature 0.7, got %v", payload["temperature"])
		}
		if msgs, ok := payload["messages"].([]any); !ok || len(msgs) != 1 {
			t.Errorf("expected 1 message, got %v", payload["messages"])
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, upstreamCompletion)
	}))
	defer server.Close()

	f := newGatewayFixture(t, server.URL)
	rec := postCompletion(f.handler,
		`{"model":"gpt-4o","messages":[{"role":"user","content":"Hi"}],"temperature":0.7}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "chatcmpl-") {
		t.Errorf("expected chatcmpl id prefix, got %q", resp.ID)
	}
	if resp.Object != types.ObjectChatCompletion {
		t.Errorf("expected object %q, got %q", types.ObjectChatCompletion, resp.Object)
	}
	if resp.Model != "gpt-4o-2024" {
		t.Errorf("expected upstream model name, got %q", resp.Model)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(resp.Choices))
	}
	if got := resp.Choices[0].Message.Content.String(); got != "Hello there" {
		t.Errorf("expected content %q, got %q", "Hello there", got)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("expected finish reason stop, got %q", resp.Choices[0].FinishReason)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 16 {
		t.Errorf("expected upstream usage 16 total tokens, got %+v", resp.Usage)
	}

	logs := f.flushLogs(t)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	entry := logs[0]
	if entry.Route != storage.RouteCompletions {
		t.Errorf("expected route %q, got %q", storage.RouteCompletions, entry.Route)
	}
	if entry.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", entry.Provider)
	}
	if entry.TotalTokens != 16 {
		t.Errorf("expected 16 total tokens logged, got %d", entry.TotalTokens)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("expected status 200 logged, got %d", entry.StatusCode)
	}
	if entry.RequestID == "" {
		t.Error("expected a request id on the log entry")
	}
}

func TestChatCompletionsValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called for invalid requests")
	}))
	defer server.Close()

	f := newGatewayFixture(t, server.URL)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `not json`},
		{"missing model", `{"messages":[{"role":"user","content":"Hi"}]}`},
		{"missing messages", `{"model":"gpt-4o"}`},
		{"empty messages", `{"model":"gpt-4o","messages":[]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postCompletion(f.handler, tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}

			var apiErr types.APIError
			if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if apiErr.Error.Type != types.ErrorTypeInvalidRequest {
				t.Errorf("expected type %q, got %q", types.ErrorTypeInvalidRequest, apiErr.Error.Type)
			}
		})
	}
}

func TestChatCompletionsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit_error"}}`)
	}))
	defer server.Close()

	f := newGatewayFixture(t, server.URL)
	rec := postCompletion(f.handler,
		`{"model":"gpt-4o","messages":[{"role":"user","content":"Hi"}]}`, nil)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}

	var apiErr types.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if apiErr.Error.Type != types.ErrorTypeRateLimit {
		t.Errorf("expected type %q, got %q", types.ErrorTypeRateLimit, apiErr.Error.Type)
	}
	if apiErr.Error.Message != "rate limited" {
		t.Errorf("expected upstream message, got %q", apiErr.Error.Message)
	}

	logs := f.flushLogs(t)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if logs[0].StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429 logged, got %d", logs[0].StatusCode)
	}
	if logs[0].ErrorMessage != "rate limited" {
		t.Errorf("expected error message logged, got %q", logs[0].ErrorMessage)
	}
}

func TestChatCompletionsMissingCredential(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	f := newGatewayFixture(t, server.URL)

	// openrouter is registered but has no stored credential
	rec := postCompletion(f.handler,
		`{"model":"openrouter/meta-llama-3","messages":[{"role":"user","content":"Hi"}]}`, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", rec.Code, rec.Body.String())
	}

	var apiErr types.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if apiErr.Error.Type != types.ErrorTypeAuthentication {
		t.Errorf("expected type %q, got %q", types.ErrorTypeAuthentication, apiErr.Error.Type)
	}
	if called {
		t.Error("upstream should not be called without a credential")
	}
}

func TestChatCompletionsUsageFallback(t *testing.T) {
	// Upstream response carries no usage block
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "upstream-2",
			"object": "chat.completion",
			"model": "gpt-4o-2024",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Counted locally"},
				"finish_reason": "stop"
			}]
		}`)
	}))
	defer server.Close()

	f := newGatewayFixture(t, server.URL)
	rec := postCompletion(f.handler,
		`{"model":"gpt-4o","messages":[{"role":"user","content":"Hi"}]}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Usage != nil {
		t.Errorf("expected no usage block in response, got %+v", resp.Usage)
	}

	// The stub tokenizer counts 7 prompt and 3 completion tokens
	logs := f.flushLogs(t)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	entry := logs[0]
	if entry.PromptTokens != 7 {
		t.Errorf("expected 7 prompt tokens from fallback count, got %d", entry.PromptTokens)
	}
	if entry.CompletionTokens != 3 {
		t.Errorf("expected 3 completion tokens from fallback count, got %d", entry.CompletionTokens)
	}
	if entry.TotalTokens != 10 {
		t.Errorf("expected 10 total tokens, got %d", entry.TotalTokens)
	}
}

func TestChatCompletionsCredentialOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-override-99999" {
			t.Errorf("expected override key, got %q", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode upstream payload: %v", err)
		}
		if _, leaked := payload["api_key"]; leaked {
			t.Error("api_key must not leak into the upstream payload")
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, upstreamCompletion)
	}))
	defer server.Close()

	f := newGatewayFixture(t, server.URL)
	rec := postCompletion(f.handler,
		`{"model":"gpt-4o","messages":[{"role":"user","content":"Hi"}],"api_key":"sk-override-99999"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChatCompletionsStrictParams(t *testing.T) {
	var lastPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&lastPayload); err != nil {
			t.Errorf("failed to decode upstream payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, upstreamCompletion)
	}))
	defer server.Close()

	f := newGatewayFixture(t, server.URL)
	body := `{"model":"gpt-4o","messages":[{"role":"user","content":"Hi"}],"unsupported_thing":"x"}`

	// Default mode drops the unsupported parameter silently
	rec := postCompletion(f.handler, body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 in lenient mode, got %d", rec.Code)
	}
	if _, present := lastPayload["unsupported_thing"]; present {
		t.Error("unsupported parameter must be dropped in lenient mode")
	}

	// Strict mode rejects it before the upstream call
	rec = postCompletion(f.handler, body, map[string]string{StrictParamsHeader: "true"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 in strict mode, got %d", rec.Code)
	}

	var apiErr types.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if apiErr.Error.Type != types.ErrorTypeInvalidRequest {
		t.Errorf("expected type %q, got %q", types.ErrorTypeInvalidRequest, apiErr.Error.Type)
	}
}

func TestChatCompletionsStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode upstream payload: %v", err)
		}
		if payload["stream"] != true {
			t.Errorf("expected stream flag in payload, got %v", payload["stream"])
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"c1","object":"chat.completion.chunk","model":"gpt-4o-2024","choices":[{"index":0,"delta":{"content":"Hel"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	f := newGatewayFixture(t, server.URL)
	rec := postCompletion(f.handler,
		`{"model":"gpt-4o","messages":[{"role":"user","content":"Hi"}],"stream":true}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"content":"Hel"`) {
		t.Errorf("expected first chunk in body, got %q", body)
	}
	if !strings.Contains(body, "data: [DONE]") {
		t.Errorf("expected done marker in body, got %q", body)
	}

	// Stream metadata is collected for accounting while chunks relay verbatim
	logs := f.flushLogs(t)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	entry := logs[0]
	if !entry.IsStreaming {
		t.Error("expected streaming log entry")
	}
	if entry.Model != "gpt-4o-2024" {
		t.Errorf("expected model from stream chunks, got %q", entry.Model)
	}
	if entry.TotalTokens != 7 {
		t.Errorf("expected 7 total tokens from stream usage, got %d", entry.TotalTokens)
	}
}
