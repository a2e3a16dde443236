package types

// ToolCall is a model-initiated function invocation. It appears on assistant
// messages and, fragment by fragment, on streaming deltas; tool definitions
// themselves travel through the request's extra-parameter bag untouched.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function FunctionCall `json:"function"`
	Index    *int         `json:"index,omitempty"` // present when streamed
}

// FunctionCall names the function and carries its arguments as the raw JSON
// string the model produced.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
