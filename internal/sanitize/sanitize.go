// Package sanitize strips model-specific noise from raw completions before they are
// graded or parsed.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenceOpen  = regexp.MustCompile("```[a-z]*\n?")
	ansiEscape = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)
)

// templateTokens are chat-template control tokens that leak into small-model output.
var templateTokens = []string{"<|system|>", "<|user|>", "<|assistant|>", "<|end|>", "</s>"}

// maxPasses bounds the fixed-point loop. Every pass that changes the text makes it
// strictly shorter, so the bound is never reached on real input.
const maxPasses = 16

// Clean returns raw with reasoning blocks, template tokens, code fences, ANSI escapes
// and non-printable characters removed, then strips one layer of matching quotes.
func Clean(raw string) string {
	text := raw
	for range maxPasses {
		next := strip(text)
		if next == text {
			break
		}
		text = next
	}
	return strings.TrimSpace(Unquote(text))
}

func strip(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	for _, tok := range templateTokens {
		text = strings.ReplaceAll(text, tok, "")
	}
	text = fenceOpen.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "```", "")
	text = ansiEscape.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, text)
	return strings.TrimSpace(text)
}

// Unquote removes exactly one pair of matching outer quotes (", ' or `).
// Text that is not fully wrapped is returned unchanged.
func Unquote(text string) string {
	if len(text) < 2 {
		return text
	}
	first, last := text[0], text[len(text)-1]
	if first != last {
		return text
	}
	switch first {
	case '"', '\'', '`':
		return text[1 : len(text)-1]
	}
	return text
}
