package models

import "time"

// DailyUsage is one rollup row: per day, per provider, per model. Rows are
// upserted as requests complete.
type DailyUsage struct {
	Date             string `json:"date"` // YYYY-MM-DD
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	RequestCount     int    `json:"request_count"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	ErrorCount       int    `json:"error_count"`
}

// StatsFilter narrows a usage query. Zero values mean no constraint on that
// dimension.
type StatsFilter struct {
	Provider  string
	Model     string
	StartDate *time.Time
	EndDate   *time.Time
}

// UsageStats is the aggregate answer to a stats query, with an optional
// per-model breakdown.
type UsageStats struct {
	TotalRequests         int                    `json:"total_requests"`
	TotalTokens           int                    `json:"total_tokens"`
	TotalPromptTokens     int                    `json:"prompt_tokens"`
	TotalCompletionTokens int                    `json:"completion_tokens"`
	ErrorCount            int                    `json:"error_count"`
	ModelBreakdown        map[string]*ModelStats `json:"models,omitempty"`
}

// ModelStats is one model's slice of the aggregate.
type ModelStats struct {
	Model            string `json:"model"`
	RequestCount     int    `json:"request_count"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	ErrorCount       int    `json:"error_count"`
}
