package docs

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/robobook/bookchat/pkg/models"
)

// Selection is a half-open rune range [Start, End) into a document's
// flattened text.
type Selection struct {
	Start int
	End   int
}

// Empty reports whether the selection covers no text.
func (s Selection) Empty() bool {
	return s.End <= s.Start
}

// Clear resets the selection to cover nothing.
func (s *Selection) Clear() {
	s.Start, s.End = 0, 0
}

// Read computes the selection context for sel against doc: the trimmed
// selected text, its position, and the section containing it. Returns nil
// when there is no document, no selection, or only whitespace is selected.
// The result is computed fresh on every call and never cached.
func Read(doc *Document, sel Selection) *models.SelectionContext {
	if doc == nil || sel.Empty() {
		return nil
	}

	runes := []rune(doc.Text)
	start, end := clamp(sel.Start, len(runes)), clamp(sel.End, len(runes))
	if end <= start {
		return nil
	}

	selected := strings.TrimSpace(string(runes[start:end]))
	if selected == "" {
		return nil
	}

	ctx := &models.SelectionContext{
		Text:      selected,
		Position:  &models.Position{Start: start, End: end},
		PageURL:   doc.URL,
		Timestamp: time.Now(),
	}
	if section := doc.SectionAt(start); section != nil {
		ctx.ContainerTag = section.Tag()
		ctx.ContainerID = section.Anchor
		ctx.ContainerClass = section.Class
	}
	return ctx
}

// Snippet returns the selected text itself, truncated for display.
func Snippet(doc *Document, sel Selection, maxLen int) string {
	ctx := Read(doc, sel)
	if ctx == nil {
		return ""
	}
	if utf8.RuneCountInString(ctx.Text) <= maxLen {
		return ctx.Text
	}
	return string([]rune(ctx.Text)[:maxLen]) + "..."
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
