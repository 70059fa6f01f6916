// Package budget estimates token counts and truncates text to a token budget
// before it is placed in a prompt. Backends use different tokenizers, so the
// estimate is a heuristic: ASCII text counts one token per 4 bytes and every
// non-ASCII rune (Hangul, CJK) counts as one token. This over-estimates for
// Korean on most tokenizers, which keeps prompts inside the context window.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// asciiBytesPerToken is the byte-to-token ratio for ASCII text.
	asciiBytesPerToken = 4

	// DefaultMaxInputTokens is the default budget for article text placed in
	// a single summarisation prompt.
	DefaultMaxInputTokens = 3000

	// messageOverhead is the per-message framing cost in most chat APIs.
	messageOverhead = 4
)

// Estimate returns a rough token count for s.
func Estimate(s string) int {
	ascii, other := 0, 0
	for _, r := range s {
		if r < utf8.RuneSelf {
			ascii++
		} else {
			other++
		}
	}
	n := ascii/asciiBytesPerToken + other
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count of msgs, counting
// role, content and per-message overhead.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// Truncate returns the longest prefix of s whose estimate does not exceed
// maxTokens. The cut always falls on a rune boundary. maxTokens <= 0 means
// no limit.
func Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 || Estimate(s) <= maxTokens {
		return s
	}

	ascii, other := 0, 0
	for i, r := range s {
		if r < utf8.RuneSelf {
			ascii++
		} else {
			other++
		}
		if ascii/asciiBytesPerToken+other > maxTokens {
			return s[:i]
		}
	}
	return s
}
