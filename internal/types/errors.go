package types

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error type strings used in the OpenAI-compatible error envelope.
const (
	ErrorTypeInvalidRequest     = "invalid_request_error"
	ErrorTypeAuthentication     = "authentication_error"
	ErrorTypePermission         = "permission_error"
	ErrorTypeNotFound           = "not_found_error"
	ErrorTypeRateLimit          = "rate_limit_error"
	ErrorTypeServer             = "server_error"
	ErrorTypeServiceUnavailable = "service_unavailable"
)

// APIError is the OpenAI-compatible error envelope. Every error the gateway
// produces itself is shaped this way; upstream provider errors relay
// verbatim instead.
type APIError struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the inner error object. Param names the offending request
// field when one can be identified.
type ErrorDetail struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param,omitempty"`
	Code    *string `json:"code,omitempty"`
}

// NewAPIError builds an error envelope with the given message and type.
func NewAPIError(message, errType string) *APIError {
	return &APIError{Error: ErrorDetail{Message: message, Type: errType}}
}

// NewAPIErrorWithParam builds an error envelope that names the request field
// that failed validation.
func NewAPIErrorWithParam(message, errType, param string) *APIError {
	e := NewAPIError(message, errType)
	e.Error.Param = &param
	return e
}

// Shorthand constructors for the common cases.
func ErrInvalidRequest(message string) *APIError { return NewAPIError(message, ErrorTypeInvalidRequest) }
func ErrAuthentication(message string) *APIError { return NewAPIError(message, ErrorTypeAuthentication) }
func ErrServer(message string) *APIError         { return NewAPIError(message, ErrorTypeServer) }
func ErrNotFound(message string) *APIError       { return NewAPIError(message, ErrorTypeNotFound) }

// WriteError serializes an API error with the given HTTP status.
func WriteError(w http.ResponseWriter, statusCode int, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(err)
}

// ProviderError carries an upstream provider failure back to the caller with
// the upstream status code preserved.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Headers    http.Header
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// ResponseParseError indicates a provider returned a body the adapter could
// not interpret. The raw body is kept for diagnostics.
type ResponseParseError struct {
	Provider   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("cannot parse %s response (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}
