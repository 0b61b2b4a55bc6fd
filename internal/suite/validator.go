package suite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/metalagman/gptbench/internal/toolcall"
)

// Validator grades final text. It must be a pure function of its input.
type Validator func(text string) bool

// Contains passes when text contains any of subs.
func Contains(subs ...string) Validator {
	return func(text string) bool {
		for _, s := range subs {
			if strings.Contains(text, s) {
				return true
			}
		}
		return false
	}
}

// ContainsFold is Contains ignoring case.
func ContainsFold(subs ...string) Validator {
	lowered := make([]string, len(subs))
	for i, s := range subs {
		lowered[i] = strings.ToLower(s)
	}
	return func(text string) bool {
		return Contains(lowered...)(strings.ToLower(text))
	}
}

// Regex passes when pattern matches somewhere in text. It panics on a bad
// pattern, like regexp.MustCompile.
func Regex(pattern string) Validator {
	re := regexp.MustCompile(pattern)
	return re.MatchString
}

// Word passes when text contains n as a standalone token.
func Word(n string) Validator {
	return Regex(`\b` + regexp.QuoteMeta(n) + `\b`)
}

// Any passes when one of vs passes.
func Any(vs ...Validator) Validator {
	return func(text string) bool {
		for _, v := range vs {
			if v(text) {
				return true
			}
		}
		return false
	}
}

// All passes when every one of vs passes.
func All(vs ...Validator) Validator {
	return func(text string) bool {
		for _, v := range vs {
			if !v(text) {
				return false
			}
		}
		return true
	}
}

// Not inverts v.
func Not(v Validator) Validator {
	return func(text string) bool { return !v(text) }
}

// NotToolCall passes when text is a plain answer rather than a tool call.
func NotToolCall() Validator {
	return func(text string) bool { return !toolcall.IsToolCall(text) }
}

// HasPrefix passes when trimmed text starts with any of prefixes.
func HasPrefix(prefixes ...string) Validator {
	return func(text string) bool {
		text = strings.TrimSpace(text)
		for _, p := range prefixes {
			if strings.HasPrefix(text, p) {
				return true
			}
		}
		return false
	}
}

// Check runs v on text. A panicking validator fails the check instead of the run.
func Check(v Validator, text string) (pass bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			pass, err = false, fmt.Errorf("validator panicked: %v", r)
		}
	}()
	return v(text), nil
}
