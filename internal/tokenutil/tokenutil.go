// Package tokenutil counts and trims tokens for the reply budget, backed by
// tiktoken-go. The cl100k_base encoding is initialized once at startup; when
// that fails (no network for the BPE download, stripped binary) a
// character-based heuristic takes over.
package tokenutil

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// CharsPerToken is the heuristic ratio used when no encoding is available.
const CharsPerToken = 4

var (
	once     sync.Once
	encoding *tiktoken.Tiktoken
)

func init() {
	initEncoding()
}

func initEncoding() {
	once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
}

// Count returns the token count of text under cl100k_base, or the
// EstimateFast heuristic when the encoding is unavailable.
func Count(text string) int {
	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// EstimateFast is the cheap estimate: max(runes/CharsPerToken, word count),
// never zero for non-empty text.
func EstimateFast(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	runes := len([]rune(trimmed))
	words := len(strings.Fields(trimmed))
	estimate := runes / CharsPerToken
	if estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

// Truncate trims text to at most maxTokens, appending an ellipsis when
// anything was cut. maxTokens <= 0 means no limit.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	if encoding != nil {
		tokens := encoding.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return encoding.Decode(tokens[:maxTokens]) + "..."
	}
	runes := []rune(text)
	limit := maxTokens * CharsPerToken
	if limit >= len(runes) {
		return text
	}
	return string(runes[:limit]) + "..."
}
