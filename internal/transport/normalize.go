package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/robobook/bookchat/pkg/models"
)

// rawSource mirrors the loose source shapes backends have been seen to
// return. None of the fields are guaranteed.
type rawSource struct {
	Title     string            `json:"title"`
	PageTitle string            `json:"page_title"`
	URL       string            `json:"url"`
	Link      string            `json:"link"`
	Content   string            `json:"content"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata"`
}

// normalizeSources converts whatever the backend sent (strings, partial
// objects, nulls) into canonical Source values, so nothing downstream has
// to shape-sniff. Index-based "Source N" titles fill in when nothing else
// resolves.
func normalizeSources(raw []json.RawMessage) []models.Source {
	if len(raw) == 0 {
		return nil
	}
	sources := make([]models.Source, 0, len(raw))
	for i, entry := range raw {
		sources = append(sources, normalizeSource(entry, i))
	}
	return sources
}

func normalizeSource(raw json.RawMessage, index int) models.Source {
	fallback := fmt.Sprintf("Source %d", index+1)

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return models.Source{Title: fallback}
	}

	// A bare string is treated as the display title.
	var title string
	if err := json.Unmarshal(raw, &title); err == nil {
		title = strings.TrimSpace(title)
		if title == "" {
			title = fallback
		}
		return models.Source{Title: title}
	}

	var rs rawSource
	if err := json.Unmarshal(raw, &rs); err != nil {
		return models.Source{Title: fallback}
	}

	source := models.Source{
		Title:   firstNonEmpty(rs.Title, rs.PageTitle, rs.Metadata["title"], rs.Metadata["source"], fallback),
		URL:     firstNonEmpty(rs.URL, rs.Link),
		Content: firstNonEmpty(rs.Content, rs.Text),
	}
	return source
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
