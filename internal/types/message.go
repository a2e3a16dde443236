// Package types defines the canonical chat-completion data model shared by
// adapters, handlers, and the forwarding layer.
package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Content part types.
const (
	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
)

// Message is one turn of a conversation. Assistant turns may carry tool
// calls; tool turns answer one via ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    Content    `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewTextMessage builds a plain text message.
func NewTextMessage(role, content string) Message {
	return Message{Role: role, Content: Content{Text: content}}
}

// Content holds message content in either of its two wire shapes: a bare
// string, or an array of typed parts for multimodal input. Exactly one of
// Text and Parts is populated.
type Content struct {
	Text  string
	Parts []ContentPart
}

// MarshalJSON emits the array form when parts are present, the string form
// otherwise.
func (c Content) MarshalJSON() ([]byte, error) {
	if len(c.Parts) > 0 {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON dispatches on the leading token: a quoted string fills Text,
// an array fills Parts. Null and unrecognized shapes decode to empty content
// rather than failing the surrounding request.
func (c *Content) UnmarshalJSON(data []byte) error {
	*c = Content{}
	token := bytes.TrimSpace(data)
	if len(token) == 0 {
		return nil
	}

	switch token[0] {
	case '"':
		return json.Unmarshal(token, &c.Text)
	case '[':
		if err := json.Unmarshal(token, &c.Parts); err != nil {
			c.Parts = nil
		}
	}
	return nil
}

// String flattens content to plain text. For multimodal content the text
// parts are concatenated and image parts skipped.
func (c Content) String() string {
	if c.Text != "" {
		return c.Text
	}
	var b strings.Builder
	for _, part := range c.Parts {
		if part.Type == ContentTypeText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// ContentPart is a single element of multimodal content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL points at an image, either by URL or as a data URI. Detail is the
// provider hint "auto", "low" or "high".
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}
