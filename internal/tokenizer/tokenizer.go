// Package tokenizer provides token counting for chat-completion requests.
// Counts feed usage accounting when upstream responses omit usage blocks.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/modelgate/modelgate/internal/types"
)

// Tokenizer counts tokens for chat completion requests.
type Tokenizer interface {
	// CountTokens counts tokens in a text string for a given model.
	CountTokens(text string, model string) (int, error)

	// CountMessages counts tokens for a slice of messages.
	CountMessages(messages []types.Message, model string) (int, error)

	// CountRequest counts total prompt tokens for a full request.
	CountRequest(req *types.CompletionRequest) (int, error)
}

// Encoding names used by tiktoken.
const (
	EncodingCL100kBase = "cl100k_base" // GPT-4, GPT-3.5-turbo
	EncodingO200kBase  = "o200k_base"  // GPT-4o, o-series
)

// modelEncoding pairs a model-name prefix with its encoding.
type modelEncoding struct {
	prefix   string
	encoding string
}

// modelEncodings lists model prefixes and their encodings. Longer prefixes
// come first so "gpt-4o" wins over "gpt-4".
var modelEncodings = []modelEncoding{
	{"text-embedding", EncodingCL100kBase},
	{"gpt-4.1", EncodingO200kBase},
	{"gpt-4o", EncodingO200kBase},
	{"gpt-3.5", EncodingCL100kBase},
	{"gpt-4", EncodingCL100kBase},
	{"chatgpt", EncodingO200kBase},
	{"o1", EncodingO200kBase},
	{"o3", EncodingO200kBase},
	{"o4", EncodingO200kBase},
}

// TiktokenTokenizer implements Tokenizer using tiktoken-go. Loaded encodings
// are cached; concurrent first loads may race but LoadOrStore keeps a single
// winner.
type TiktokenTokenizer struct {
	encodings sync.Map // encoding name -> *tiktoken.Tiktoken
}

// New creates a TiktokenTokenizer with an empty encoding cache.
func New() *TiktokenTokenizer {
	return &TiktokenTokenizer{}
}

func (t *TiktokenTokenizer) getEncoding(model string) (*tiktoken.Tiktoken, error) {
	name := t.resolveEncoding(model)

	if enc, ok := t.encodings.Load(name); ok {
		return enc.(*tiktoken.Tiktoken), nil
	}

	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	cached, _ := t.encodings.LoadOrStore(name, enc)
	return cached.(*tiktoken.Tiktoken), nil
}

// resolveEncoding determines the encoding name for a model. Routed model ids
// carry a provider prefix ("openai/gpt-4o"), which is stripped before
// matching. Unknown families fall back to cl100k_base as a workable
// approximation.
func (t *TiktokenTokenizer) resolveEncoding(model string) string {
	name := strings.ToLower(model)
	if _, rest, found := strings.Cut(name, "/"); found {
		name = rest
	}

	for _, me := range modelEncodings {
		if strings.HasPrefix(name, me.prefix) {
			return me.encoding
		}
	}

	return EncodingCL100kBase
}

// CountTokens counts tokens in a text string for a given model.
func (t *TiktokenTokenizer) CountTokens(text string, model string) (int, error) {
	enc, err := t.getEncoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// counts sums CountTokens over several strings. Empty strings encode to zero
// tokens, so they are skipped outright.
func (t *TiktokenTokenizer) counts(model string, texts ...string) (int, error) {
	total := 0
	for _, text := range texts {
		if text == "" {
			continue
		}
		n, err := t.CountTokens(text, model)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
