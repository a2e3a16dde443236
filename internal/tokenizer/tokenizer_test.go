package tokenizer

import "testing"

func TestCountTokens(t *testing.T) {
	tok := New()

	tests := []struct {
		name     string
		text     string
		model    string
		minCount int // exact counts vary by encoding version
		maxCount int
	}{
		{"simple text gpt-4", "Hello, world!", "gpt-4", 3, 5},
		{"simple text gpt-3.5", "Hello, world!", "gpt-3.5-turbo", 3, 5},
		{"simple text gpt-4o", "Hello, world!", "gpt-4o", 3, 5},
		{"unknown model defaults to cl100k", "Hello, world!", "granite-13b-chat-v2", 3, 5},
		{"empty text", "", "gpt-4", 0, 0},
		{"longer text", "The quick brown fox jumps over the lazy dog.", "gpt-4", 8, 12},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			count, err := tok.CountTokens(tc.text, tc.model)
			if err != nil {
				t.Fatalf("CountTokens() error: %v", err)
			}
			if count < tc.minCount || count > tc.maxCount {
				t.Errorf("CountTokens() = %d, want between %d and %d",
					count, tc.minCount, tc.maxCount)
			}
		})
	}
}

func TestResolveEncoding(t *testing.T) {
	tok := New()

	tests := []struct {
		model    string
		expected string
	}{
		{"gpt-4", EncodingCL100kBase},
		{"gpt-4-turbo", EncodingCL100kBase},
		{"gpt-3.5-turbo", EncodingCL100kBase},
		{"gpt-4o", EncodingO200kBase},
		{"gpt-4o-mini", EncodingO200kBase},
		{"gpt-4.1-mini", EncodingO200kBase},
		{"o1-preview", EncodingO200kBase},
		{"o3-mini", EncodingO200kBase},
		{"chatgpt-4o-latest", EncodingO200kBase},
		// Routed model ids resolve on the part after the provider prefix
		{"openai/gpt-4o", EncodingO200kBase},
		{"openai/gpt-4", EncodingCL100kBase},
		{"watsonx/ibm/granite-13b-chat-v2", EncodingCL100kBase},
		// Unknown families default to cl100k_base
		{"claude-3-opus", EncodingCL100kBase},
		{"command-r-plus", EncodingCL100kBase},
		{"mistral-7b", EncodingCL100kBase},
		{"deployment/abc123", EncodingCL100kBase},
	}

	for _, tc := range tests {
		t.Run(tc.model, func(t *testing.T) {
			result := tok.resolveEncoding(tc.model)
			if result != tc.expected {
				t.Errorf("resolveEncoding(%q) = %q, want %q",
					tc.model, result, tc.expected)
			}
		})
	}
}

func TestMessageOverhead(t *testing.T) {
	tests := []struct {
		model    string
		expected int
	}{
		{"gpt-3.5-turbo", messageOverheadGPT35},
		{"openai/gpt-3.5-turbo", messageOverheadGPT35},
		{"gpt-4", messageOverheadGPT4},
		{"watsonx/ibm/granite-13b-chat-v2", messageOverheadGPT4},
	}

	for _, tc := range tests {
		t.Run(tc.model, func(t *testing.T) {
			if got := messageOverhead(tc.model); got != tc.expected {
				t.Errorf("messageOverhead(%q) = %d, want %d", tc.model, got, tc.expected)
			}
		})
	}
}

func TestEncodingCaching(t *testing.T) {
	tok := New()

	// Two models of the same family resolve to one encoding; only one cache
	// entry should exist afterwards.
	if _, err := tok.CountTokens("hello", "gpt-4"); err != nil {
		t.Fatalf("first CountTokens() error: %v", err)
	}
	if _, err := tok.CountTokens("world", "gpt-3.5-turbo"); err != nil {
		t.Fatalf("second CountTokens() error: %v", err)
	}

	cached := 0
	tok.encodings.Range(func(_, _ any) bool {
		cached++
		return true
	})
	if cached != 1 {
		t.Errorf("expected 1 cached encoding, got %d", cached)
	}
}

func TestCountsSkipsEmpty(t *testing.T) {
	tok := New()

	withEmpties, err := tok.counts("gpt-4", "", "hello", "", "world", "")
	if err != nil {
		t.Fatalf("counts() error: %v", err)
	}
	plain, err := tok.counts("gpt-4", "hello", "world")
	if err != nil {
		t.Fatalf("counts() error: %v", err)
	}
	if withEmpties != plain {
		t.Errorf("counts with empties = %d, without = %d, want equal", withEmpties, plain)
	}
	if plain == 0 {
		t.Error("counts() = 0 for non-empty input")
	}
}
