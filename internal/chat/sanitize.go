package chat

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Length limits enforced before a user message is created.
const (
	MaxQueryLen   = 2000
	MaxContextLen = 5000
)

// Validation error kinds.
const (
	KindEmptyQuery     = "empty_query"
	KindQueryTooLong   = "query_too_long"
	KindContextTooLong = "context_too_long"
)

// ValidationError is raised locally before any network call.
type ValidationError struct {
	Kind string
}

func (e *ValidationError) Error() string {
	return "validation error [" + e.Kind + "]"
}

// UserMessage returns the display string shown in the widget's error slot.
func (e *ValidationError) UserMessage() string {
	switch e.Kind {
	case KindEmptyQuery:
		return "Query cannot be empty"
	case KindQueryTooLong:
		return "Query exceeds maximum length of 2000 characters"
	case KindContextTooLong:
		return "Selected text context exceeds maximum length of 5000 characters"
	default:
		return "Invalid input"
	}
}

var (
	scriptRe  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	jsURIRe   = regexp.MustCompile(`(?i)javascript:`)
	handlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// Sanitize strips script tags, javascript: URIs, and inline event-handler
// attributes. Stripping repeats until the output stabilizes, so fragments
// left behind by one pass cannot reassemble into a dangerous pattern. The
// result is idempotent: sanitized input passes through unchanged.
func Sanitize(input string) string {
	out := input
	for {
		next := scriptRe.ReplaceAllString(out, "")
		next = jsURIRe.ReplaceAllString(next, "")
		next = handlerRe.ReplaceAllString(next, "")
		if next == out {
			return next
		}
		out = next
	}
}

// ValidateQuery trims, length-checks, and sanitizes a user query.
func ValidateQuery(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", &ValidationError{Kind: KindEmptyQuery}
	}
	if utf8.RuneCountInString(trimmed) > MaxQueryLen {
		return "", &ValidationError{Kind: KindQueryTooLong}
	}
	return Sanitize(trimmed), nil
}

// ValidateContext length-checks and sanitizes selection context. Empty
// context is fine; it just means no selection.
func ValidateContext(context string) (string, error) {
	if context == "" {
		return "", nil
	}
	if utf8.RuneCountInString(context) > MaxContextLen {
		return "", &ValidationError{Kind: KindContextTooLong}
	}
	return Sanitize(context), nil
}
