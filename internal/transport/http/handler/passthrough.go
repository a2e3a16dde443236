package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelgate/modelgate/internal/forward"
	"github.com/modelgate/modelgate/internal/observability"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/transport/http/middleware"
	"github.com/modelgate/modelgate/internal/types"
)

// PassthroughProxy handles /passthrough/{provider}/{path...} for all methods.
// The request is forwarded verbatim to the provider's native endpoint with
// gateway-managed credentials injected; the response streams back untouched.
func (h *Handler) PassthroughProxy(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := middleware.GetRequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	providerID := r.PathValue("provider")
	if providerID == "" {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("provider is required"))
		return
	}
	rest := r.PathValue("path")

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("failed to read request body"))
			return
		}
		r.Body.Close()
	}

	desc, err := h.Passthrough.Build(r.Context(), providerID, rest, r, body)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	if desc.Stream {
		observability.StreamingConnections.Inc()
		defer observability.StreamingConnections.Dec()
	}

	result, _ := h.Executor.Relay(r.Context(), w, &forward.Request{
		Method:   desc.Method,
		URL:      desc.URL,
		Header:   desc.Header,
		Body:     desc.Body,
		Stream:   desc.Stream,
		Provider: desc.Provider,
	})

	h.logResult(requestID, storage.RoutePassthrough, result, startTime)
}
