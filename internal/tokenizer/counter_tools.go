package tokenizer

import (
	"encoding/json"

	"github.com/modelgate/modelgate/internal/types"
)

// Structure overhead per tool definition and per tool call, approximating
// the JSON scaffolding around the counted fields.
const (
	toolDefinitionOverhead = 7
	toolCallOverhead       = 5
)

// countToolDefinitions counts tokens for caller-supplied tool definitions.
// Definitions arrive untyped from the request's extra parameters; each one
// is serialized and counted as the provider will see it.
func (t *TiktokenTokenizer) countToolDefinitions(tools []any, model string) (int, error) {
	total := 0
	for _, tool := range tools {
		encoded, err := json.Marshal(tool)
		if err != nil {
			return 0, err
		}
		tokens, err := t.CountTokens(string(encoded), model)
		if err != nil {
			return 0, err
		}
		total += tokens + toolDefinitionOverhead
	}
	return total, nil
}

// countToolCalls counts the id, function name and raw argument string of
// each call in an assistant message.
func (t *TiktokenTokenizer) countToolCalls(calls []types.ToolCall, model string) (int, error) {
	total := 0
	for _, call := range calls {
		tokens, err := t.counts(model, call.ID, call.Function.Name, call.Function.Arguments)
		if err != nil {
			return 0, err
		}
		total += tokens + toolCallOverhead
	}
	return total, nil
}
