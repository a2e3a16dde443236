package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelgate/modelgate/internal/adapter"
	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/forward"
	"github.com/modelgate/modelgate/internal/observability"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/transport/http/middleware"
	"github.com/modelgate/modelgate/internal/types"
)

// tokenCountTimeout caps how long response delivery waits for the background
// token count before logging without it.
const tokenCountTimeout = 100 * time.Millisecond

// StrictParamsHeader toggles strict parameter mapping per request,
// overriding the configured default.
const StrictParamsHeader = "X-Strict-Params"

// ChatCompletions handles POST /v1/chat/completions requests.
// The canonical request is translated to the provider's native form, sent
// upstream, and the response translated back.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := middleware.GetRequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	// Read and buffer the request body
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("failed to read request body"))
		return
	}
	r.Body.Close()

	// Parse request
	var req types.CompletionRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("invalid request format"))
		return
	}

	// Validate required fields
	if req.Model == "" {
		types.WriteError(w, http.StatusBadRequest,
			types.NewAPIErrorWithParam("model is required", types.ErrorTypeInvalidRequest, "model"))
		return
	}
	if len(req.Messages) == 0 {
		types.WriteError(w, http.StatusBadRequest,
			types.NewAPIErrorWithParam("messages is required", types.ErrorTypeInvalidRequest, "messages"))
		return
	}

	// Per-call credential overrides ride in as extra body keys. Strip them
	// before mapping so strict mode never sees them.
	override := extractOverride(&req)

	prov, model, err := h.Registry.Resolve(req.Model)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	cred, err := h.Resolver.Resolve(prov.Name(), "", override)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	native, err := prov.MapParameters(req.CanonicalParams(), h.strictMode(r))
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	payload, err := prov.BuildPayload(model, req.Messages, native, cred)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	url, err := prov.BuildURL("", model, native, req.Stream, cred)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	header, err := prov.AuthHeaders(r.Context(), make(http.Header), cred)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	upstreamBody, err := json.Marshal(payload)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to encode provider payload"))
		return
	}

	// Count prompt tokens in the background while the upstream call runs.
	// The count fills usage only when the provider reports none.
	tokensChan := make(chan int, 1)
	go func() {
		defer close(tokensChan)
		if h.Tokenizer == nil {
			return
		}
		if tokens, err := h.Tokenizer.CountRequest(&req); err == nil {
			tokensChan <- tokens
		}
	}()

	freq := &forward.Request{
		Method:   http.MethodPost,
		URL:      url,
		Header:   header,
		Body:     upstreamBody,
		Stream:   req.Stream,
		Provider: prov.Name(),
	}

	var result *forward.Result
	if req.Stream {
		observability.StreamingConnections.Inc()
		result, _ = h.Executor.RelayStream(r.Context(), w, freq)
		observability.StreamingConnections.Dec()
	} else {
		result = h.completeBuffered(r, w, prov, model, freq)
	}
	if result == nil {
		return
	}
	if result.Model == "" {
		result.Model = model
	}

	// Wait briefly for the background count, then fill in missing usage.
	var countedPrompt int
	select {
	case tokens, ok := <-tokensChan:
		if ok {
			countedPrompt = tokens
		}
	case <-time.After(tokenCountTimeout):
	}
	if !result.UpstreamUsage {
		if result.PromptTokens == 0 {
			result.PromptTokens = countedPrompt
		}
		if result.CompletionTokens == 0 && result.Content != "" && h.Tokenizer != nil {
			if tokens, err := h.Tokenizer.CountTokens(result.Content, model); err == nil {
				result.CompletionTokens = tokens
			}
		}
		result.TotalTokens = result.PromptTokens + result.CompletionTokens
	}

	h.logResult(requestID, storage.RouteCompletions, result, startTime)
}

// completeBuffered performs the non-streaming upstream exchange and writes
// the canonical response. It returns the result for logging, or nil when
// nothing reached the upstream.
func (h *Handler) completeBuffered(r *http.Request, w http.ResponseWriter, prov adapter.Adapter, model string, freq *forward.Request) *forward.Result {
	resp, err := h.Executor.Send(r.Context(), freq)
	if err != nil {
		types.WriteError(w, http.StatusBadGateway, types.ErrServer("upstream request failed: "+err.Error()))
		return &forward.Result{
			Provider:     freq.Provider,
			StatusCode:   http.StatusBadGateway,
			ErrorMessage: err.Error(),
		}
	}

	result := &forward.Result{
		Provider:   freq.Provider,
		StatusCode: resp.StatusCode,
		Duration:   resp.Duration,
	}

	if resp.StatusCode >= 400 {
		provErr := prov.ErrorFromStatus(resp.StatusCode, resp.Body, resp.Header)
		result.ErrorMessage = provErr.Message
		writeGatewayError(w, provErr)
		return result
	}

	parsed, err := prov.ParseResponse(resp.StatusCode, resp.Body)
	if err != nil {
		result.StatusCode = http.StatusBadGateway
		result.ErrorMessage = err.Error()
		writeGatewayError(w, err)
		return result
	}

	result.Content = parsed.Content
	result.FinishReason = parsed.FinishReason
	result.Model = parsed.Model
	if parsed.Usage != nil {
		result.PromptTokens = parsed.Usage.PromptTokens
		result.CompletionTokens = parsed.Usage.CompletionTokens
		result.TotalTokens = parsed.Usage.TotalTokens
		if result.TotalTokens == 0 {
			result.TotalTokens = parsed.Usage.TotalUsage()
		}
		result.UpstreamUsage = true
	}

	role := parsed.Role
	if role == "" {
		role = types.RoleAssistant
	}
	responseModel := parsed.Model
	if responseModel == "" {
		responseModel = model
	}

	out := &types.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  types.ObjectChatCompletion,
		Created: time.Now().Unix(),
		Model:   responseModel,
		Choices: []types.Choice{
			{
				Index:        0,
				Message:      types.NewTextMessage(role, parsed.Content),
				FinishReason: parsed.FinishReason,
			},
		},
		Usage: parsed.Usage,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
	return result
}

// extractOverride pulls the reserved credential keys out of the request's
// extra parameters. String values win; other types are discarded.
func extractOverride(req *types.CompletionRequest) *credential.Override {
	if len(req.Extra) == 0 {
		return nil
	}

	override := &credential.Override{}
	found := false
	take := func(key string, dst *string) {
		v, ok := req.Extra[key]
		if !ok {
			return
		}
		delete(req.Extra, key)
		if s, ok := v.(string); ok && s != "" {
			*dst = s
			found = true
		}
	}

	take("api_key", &override.APIKey)
	take("token", &override.Token)
	take("api_base", &override.BaseURL)
	take("api_version", &override.APIVersion)
	take("project_id", &override.ProjectID)
	take("space_id", &override.SpaceID)

	if !found {
		return nil
	}
	return override
}

// strictMode resolves the parameter-mapping mode for this request.
func (h *Handler) strictMode(r *http.Request) bool {
	switch r.Header.Get(StrictParamsHeader) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	if h.Config != nil {
		return h.Config.StrictParams
	}
	return false
}

// logResult records the call in metrics and the async request log.
func (h *Handler) logResult(requestID, route string, result *forward.Result, startTime time.Time) {
	if result == nil {
		return
	}

	duration := result.Duration
	if duration == 0 {
		duration = time.Since(startTime)
	}

	observability.ObserveProvider(result.Provider, result.Model, result.StatusCode, duration, result.PromptTokens, result.CompletionTokens)

	if h.Writer == nil {
		return
	}
	h.Writer.Write(&storage.RequestLog{
		ID:               uuid.New().String(),
		RequestID:        requestID,
		Route:            route,
		Model:            result.Model,
		Provider:         result.Provider,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		IsStreaming:      result.Streamed,
		StatusCode:       result.StatusCode,
		ErrorMessage:     result.ErrorMessage,
		DurationMs:       duration.Milliseconds(),
		CreatedAt:        time.Now(),
	})
}
