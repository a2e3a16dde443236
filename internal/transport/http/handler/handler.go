// Package handler implements the gateway's HTTP endpoints.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/modelgate/modelgate/internal/adapter"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/forward"
	"github.com/modelgate/modelgate/internal/passthrough"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/tokenizer"
	"github.com/modelgate/modelgate/internal/types"
)

// Handler holds the dependencies for the gateway's proxy endpoints.
type Handler struct {
	Registry    *adapter.Registry
	Resolver    *credential.Resolver
	Executor    *forward.Executor
	Passthrough *passthrough.Builder
	Tokenizer   tokenizer.Tokenizer
	Writer      *storage.AsyncWriter
	Config      *config.Config
	StartTime   time.Time
}

// New creates a new instance of the gateway handlers.
func New(registry *adapter.Registry, resolver *credential.Resolver, executor *forward.Executor, builder *passthrough.Builder, tok tokenizer.Tokenizer, writer *storage.AsyncWriter, cfg *config.Config) *Handler {
	return &Handler{
		Registry:    registry,
		Resolver:    resolver,
		Executor:    executor,
		Passthrough: builder,
		Tokenizer:   tok,
		Writer:      writer,
		Config:      cfg,
		StartTime:   time.Now(),
	}
}

// writeGatewayError maps gateway errors to wire responses. Provider failures
// keep their upstream status code; everything else collapses to the closest
// client or server error.
func writeGatewayError(w http.ResponseWriter, err error) {
	var (
		unknownProvider *adapter.UnknownProviderError
		unsupported     *adapter.UnsupportedParameterError
		missingCred     *credential.MissingCredentialError
		missingConfig   *passthrough.MissingUpstreamConfigError
		providerErr     *types.ProviderError
		parseErr        *types.ResponseParseError
	)

	switch {
	case errors.As(err, &unknownProvider):
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest(err.Error()))
	case errors.As(err, &unsupported):
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest(err.Error()))
	case errors.As(err, &missingCred):
		types.WriteError(w, http.StatusUnauthorized, types.ErrAuthentication(err.Error()))
	case errors.As(err, &missingConfig):
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest(err.Error()))
	case errors.As(err, &providerErr):
		types.WriteError(w, providerErr.StatusCode, providerAPIError(providerErr))
	case errors.As(err, &parseErr):
		types.WriteError(w, http.StatusBadGateway, types.ErrServer(err.Error()))
	default:
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer(err.Error()))
	}
}

// providerAPIError converts an upstream failure to the wire error shape,
// choosing the error type from the upstream status class.
func providerAPIError(e *types.ProviderError) *types.APIError {
	errType := types.ErrorTypeServer
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		errType = types.ErrorTypeAuthentication
	case e.StatusCode == http.StatusNotFound:
		errType = types.ErrorTypeNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		errType = types.ErrorTypeRateLimit
	case e.StatusCode == http.StatusServiceUnavailable:
		errType = types.ErrorTypeServiceUnavailable
	case e.StatusCode >= 400 && e.StatusCode < 500:
		errType = types.ErrorTypeInvalidRequest
	}
	return types.NewAPIError(e.Message, errType)
}
