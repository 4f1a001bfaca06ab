package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robobook/bookchat/internal/chat"
	"github.com/robobook/bookchat/internal/docs"
	"github.com/robobook/bookchat/pkg/models"
)

// Message types for async operations
type (
	// PagesListedMsg contains the doc pages found under the docs root
	PagesListedMsg struct {
		Pages []string
		Error error
	}

	// PageLoadedMsg contains a parsed doc page
	PageLoadedMsg struct {
		Doc   *docs.Document
		Error error
	}

	// ResponseMsg contains the outcome of a query round trip
	ResponseMsg struct {
		Result *chat.Result
		Error  error
	}

	// HighlightExpiredMsg restores the selection style after the flash delay
	HighlightExpiredMsg struct{}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time
)

// listPagesCmd scans the docs root asynchronously
func listPagesCmd(docsRoot string) tea.Cmd {
	return func() tea.Msg {
		pages, err := docs.ListPages(docsRoot)
		return PagesListedMsg{
			Pages: pages,
			Error: err,
		}
	}
}

// loadPageCmd loads and parses one doc page asynchronously
func loadPageCmd(docsRoot, path string) tea.Cmd {
	return func() tea.Msg {
		doc, err := docs.Load(docsRoot, path)
		return PageLoadedMsg{
			Doc:   doc,
			Error: err,
		}
	}
}

// sendQueryCmd runs one send through the controller asynchronously
func sendQueryCmd(ctx context.Context, controller *chat.Controller, input string, sel *models.SelectionContext) tea.Cmd {
	return func() tea.Msg {
		result, err := controller.Send(ctx, input, sel)
		return ResponseMsg{
			Result: result,
			Error:  err,
		}
	}
}

// highlightExpireCmd schedules the end of the selection flash
func highlightExpireCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return HighlightExpiredMsg{}
	})
}

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
