package tokenizer

import (
	"strings"

	"github.com/modelgate/modelgate/internal/types"
)

// Message token overhead varies by model family. Values follow OpenAI's
// published counting rules.
const (
	messageOverheadGPT4  = 3 // <|start|>role<|end|>
	messageOverheadGPT35 = 4

	// Reply priming tokens (assistant response start)
	replyPrimingTokens = 3

	// Name field overhead (if present)
	nameOverhead = 1
)

// messageOverhead returns the per-message token overhead for a model.
func messageOverhead(model string) int {
	name := strings.ToLower(model)
	if _, rest, found := strings.Cut(name, "/"); found {
		name = rest
	}
	if strings.HasPrefix(name, "gpt-3.5") {
		return messageOverheadGPT35
	}
	return messageOverheadGPT4
}

// CountMessages counts prompt tokens for a conversation: each message plus
// its per-message overhead, plus the reply priming tokens.
func (t *TiktokenTokenizer) CountMessages(messages []types.Message, model string) (int, error) {
	overhead := messageOverhead(model)

	total := replyPrimingTokens
	for _, msg := range messages {
		tokens, err := t.countMessage(msg, model)
		if err != nil {
			return 0, err
		}
		total += tokens + overhead
	}
	return total, nil
}

// CountRequest counts total prompt tokens for a full request: messages plus
// any tool definitions the caller supplied.
func (t *TiktokenTokenizer) CountRequest(req *types.CompletionRequest) (int, error) {
	total, err := t.CountMessages(req.Messages, req.Model)
	if err != nil {
		return 0, err
	}

	if tools, ok := req.Extra["tools"].([]any); ok && len(tools) > 0 {
		toolTokens, err := t.countToolDefinitions(tools, req.Model)
		if err != nil {
			return 0, err
		}
		total += toolTokens
	}
	return total, nil
}

// countMessage counts one message: role, content, optional name, and any
// tool-call payloads.
func (t *TiktokenTokenizer) countMessage(msg types.Message, model string) (int, error) {
	total, err := t.counts(model, msg.Role, msg.ToolCallID)
	if err != nil {
		return 0, err
	}

	contentTokens, err := t.countContent(msg.Content, model)
	if err != nil {
		return 0, err
	}
	total += contentTokens

	if msg.Name != "" {
		nameTokens, err := t.counts(model, msg.Name)
		if err != nil {
			return 0, err
		}
		total += nameTokens + nameOverhead
	}

	if len(msg.ToolCalls) > 0 {
		callTokens, err := t.countToolCalls(msg.ToolCalls, model)
		if err != nil {
			return 0, err
		}
		total += callTokens
	}

	return total, nil
}
