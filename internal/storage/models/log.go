package models

import "time"

// Route constants for RequestLog.Route.
const (
	RouteCompletions = "completions"
	RoutePassthrough = "passthrough"
)

// RequestLog represents a logged gateway request.
type RequestLog struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"request_id"`
	Route            string    `json:"route"` // completions or passthrough
	Model            string    `json:"model,omitempty"`
	Provider         string    `json:"provider"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	IsStreaming      bool      `json:"is_streaming"`
	StatusCode       int       `json:"status_code"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// LogFilter contains parameters for filtering request logs
type LogFilter struct {
	Route      string
	Model      string
	Provider   string
	StatusCode *int
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}
