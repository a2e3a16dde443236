package watsonx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/modelgate/modelgate/internal/types"
)

// generationResponse is the watsonx text generation response envelope.
type generationResponse struct {
	ModelID string             `json:"model_id"`
	Results []generationResult `json:"results"`
}

type generationResult struct {
	GeneratedText       string `json:"generated_text"`
	GeneratedTokenCount int    `json:"generated_token_count"`
	InputTokenCount     int    `json:"input_token_count"`
	StopReason          string `json:"stop_reason"`
}

// errorResponse covers the error body shapes watsonx returns.
type errorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ParseResponse converts a generation result into the canonical shape. The
// first result carries the generated text and token counts.
func (a *Adapter) ParseResponse(status int, body []byte) (*types.ModelResponse, error) {
	var parsed generationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &types.ResponseParseError{Provider: a.Name(), StatusCode: status, Body: body, Err: err}
	}
	if len(parsed.Results) == 0 {
		return nil, &types.ResponseParseError{
			Provider:   a.Name(),
			StatusCode: status,
			Body:       body,
			Err:        errors.New("response carries no results"),
		}
	}

	result := parsed.Results[0]
	return &types.ModelResponse{
		Role:         types.RoleAssistant,
		Content:      result.GeneratedText,
		FinishReason: mapStopReason(result.StopReason),
		Model:        parsed.ModelID,
		Usage: &types.Usage{
			PromptTokens:     result.InputTokenCount,
			CompletionTokens: result.GeneratedTokenCount,
			TotalTokens:      result.InputTokenCount + result.GeneratedTokenCount,
		},
	}, nil
}

// ErrorFromStatus extracts the most specific message available from a
// non-2xx response body.
func (a *Adapter) ErrorFromStatus(status int, body []byte, h http.Header) *types.ProviderError {
	message := strings.TrimSpace(string(body))

	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case len(parsed.Errors) > 0 && parsed.Errors[0].Message != "":
			message = parsed.Errors[0].Message
			if parsed.Errors[0].Code != "" {
				message = parsed.Errors[0].Code + ": " + message
			}
		case parsed.Message != "":
			message = parsed.Message
		case parsed.Error != "":
			message = parsed.Error
		}
	}

	return &types.ProviderError{
		Provider:   a.Name(),
		StatusCode: status,
		Message:    message,
		Headers:    h,
	}
}

// mapStopReason converts watsonx stop reasons to canonical finish reasons.
// Unknown reasons pass through unchanged.
func mapStopReason(reason string) string {
	switch reason {
	case "eos_token", "stop_sequence":
		return types.FinishReasonStop
	case "max_tokens", "token_limit":
		return types.FinishReasonLength
	default:
		return reason
	}
}
