package types

// ChatCompletionChunk is one SSE event of a streaming completion.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"` // "chat.completion.chunk"
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"` // final chunk only, when requested
}

// ChunkChoice is one choice slot within a chunk. FinishReason stays a
// pointer so a JSON null survives the round trip.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// GetFinishReason returns the finish reason, or "" while the choice is
// still streaming.
func (c *ChunkChoice) GetFinishReason() string {
	if c.FinishReason == nil {
		return ""
	}
	return *c.FinishReason
}

// Delta carries the incremental piece of a streamed message.
type Delta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}
