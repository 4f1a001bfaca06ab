package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source is a citation attached to an assistant message. Title is always
// populated; URL and Content are optional and a source without a URL renders
// as plain text with a content preview.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
}

// Message is one turn in a conversation. User messages are never mutated
// after creation and never carry sources.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources,omitempty"`
}

// Session is a bounded conversation: an ordered message history plus
// free-form metadata, identified by an opaque id. Messages are append-only
// and their order is both chronological and render order.
type Session struct {
	ID             string            `json:"id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity"`
	Messages       []Message         `json:"messages"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Position is a best-effort character offset range into the flattened text
// of a document page.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SelectionContext captures the text selected on a doc page at the moment a
// query is sent, together with where it came from. It is computed fresh on
// every send and never stored in a session.
type SelectionContext struct {
	Text           string    `json:"text"`
	Position       *Position `json:"position,omitempty"`
	ContainerTag   string    `json:"container_tag,omitempty"`
	ContainerID    string    `json:"container_id,omitempty"`
	ContainerClass string    `json:"container_class,omitempty"`
	PageURL        string    `json:"page_url,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ChatResponse is the canonical answer shape returned by the backend.
type ChatResponse struct {
	Response   string            `json:"response"`
	Sources    []Source          `json:"sources"`
	SessionID  string            `json:"session_id"`
	Confidence float64           `json:"confidence,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// HealthStatus is the backend health report.
type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}
