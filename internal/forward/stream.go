package forward

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/modelgate/modelgate/internal/types"
)

var (
	dataPrefix = []byte("data: ")
	doneMarker = []byte("[DONE]")
)

// scanLines feeds r to fn line by line with the trailing newline stripped.
// The buffer is sized for large SSE chunks.
func scanLines(r io.Reader, fn func(line []byte) error) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 256*1024)

	for scanner.Scan() {
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// streamStats accumulates metadata from an OpenAI-style SSE stream. Lines
// that are not data lines or do not decode as chunks are ignored, so foreign
// stream formats relay untouched.
type streamStats struct {
	content      strings.Builder
	usage        *types.Usage
	finishReason string
	model        string
}

func (s *streamStats) observe(line []byte) {
	if !bytes.HasPrefix(line, dataPrefix) {
		return
	}

	data := bytes.TrimPrefix(line, dataPrefix)
	if bytes.Equal(data, doneMarker) {
		return
	}

	var chunk types.ChatCompletionChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return
	}

	if s.model == "" && chunk.Model != "" {
		s.model = chunk.Model
	}
	if chunk.Usage != nil {
		s.usage = chunk.Usage
	}
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			s.content.WriteString(choice.Delta.Content)
		}
		if reason := choice.GetFinishReason(); reason != "" {
			s.finishReason = reason
		}
	}
}
