package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robobook/bookchat/internal/chat"
	"github.com/robobook/bookchat/internal/docs"
	"github.com/robobook/bookchat/pkg/models"
)

type viewMode int

const (
	readerView viewMode = iota
	chatView
)

type model struct {
	controller *chat.Controller
	docsRoot   string

	pages     []string
	pageIndex int
	doc       *docs.Document
	docLines  []string
	lineStart []int // rune offset of each doc line

	currentMode viewMode

	// reader state
	readerViewport viewport.Model
	cursorLine     int
	selecting      bool
	selAnchor      int
	selection      docs.Selection
	highlighting   bool

	// chat state
	messages     []models.Message
	pendingInput string // user turn shown while a send is in flight
	input        textarea.Model
	sending      bool
	errMsg       string
	chatViewport viewport.Model
	indicator    *LoadingIndicator

	ready  bool
	err    error
	width  int
	height int
}

func initialModel(controller *chat.Controller, docsRoot string) model {
	input := textarea.New()
	input.Placeholder = "Ask a question about the book..."
	input.CharLimit = chat.MaxQueryLen
	input.ShowLineNumbers = false
	input.SetHeight(2)
	// Enter sends; alt+enter inserts a newline.
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	m := model{
		controller:  controller,
		docsRoot:    docsRoot,
		currentMode: readerView,
		input:       input,
		indicator:   NewLoadingIndicator("Thinking..."),
	}

	// Restore the conversation from the persisted session, if any.
	if session := controller.Session(); session != nil {
		m.messages = session.Messages
	}

	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, listPagesCmd(m.docsRoot))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutViewports()
		m.ready = true
		m.updateViewport()

	case PagesListedMsg:
		if msg.Error != nil {
			m.err = msg.Error
			return m, nil
		}
		m.pages = msg.Pages
		if len(m.pages) > 0 {
			return m, loadPageCmd(m.docsRoot, m.pages[m.pageIndex])
		}

	case PageLoadedMsg:
		if msg.Error != nil {
			m.err = msg.Error
			return m, nil
		}
		m.setDocument(msg.Doc)
		m.updateViewport()

	case ResponseMsg:
		m.sending = false
		m.pendingInput = ""
		// Visible list re-syncs from the store: the user turn stays even
		// when the assistant turn failed.
		if session := m.controller.Session(); session != nil {
			m.messages = session.Messages
		}
		if msg.Error != nil {
			// A response for a closed widget is dropped.
			if m.currentMode == chatView {
				m.errMsg = chat.UserMessage(msg.Error)
			}
		} else {
			m.errMsg = ""
			m.input.Reset()
			m.selection.Clear()
			m.selecting = false
		}
		m.updateViewport()
		m.chatViewport.GotoBottom()

	case HighlightExpiredMsg:
		m.highlighting = false
		m.updateViewport()

	case TickMsg:
		if m.sending {
			m.indicator.Tick()
			m.updateViewport()
			cmds = append(cmds, tickCmd())
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.currentMode == chatView {
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		var cmd tea.Cmd
		m.readerViewport, cmd = m.readerViewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.currentMode == chatView {
		return m.handleChatKey(msg)
	}
	return m.handleReaderKey(msg)
}

func (m model) handleReaderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursorLine > 0 {
			m.cursorLine--
			m.extendSelection()
			m.updateViewport()
		}

	case "down", "j":
		if m.cursorLine < len(m.docLines)-1 {
			m.cursorLine++
			m.extendSelection()
			m.updateViewport()
		}

	case "left", "h":
		if m.pageIndex > 0 {
			m.pageIndex--
			return m, loadPageCmd(m.docsRoot, m.pages[m.pageIndex])
		}

	case "right", "l":
		if m.pageIndex < len(m.pages)-1 {
			m.pageIndex++
			return m, loadPageCmd(m.docsRoot, m.pages[m.pageIndex])
		}

	case "v":
		if m.selecting {
			// End of selection: flash it briefly as feedback.
			m.selecting = false
			m.highlighting = true
			m.updateViewport()
			return m, highlightExpireCmd()
		}
		m.selecting = true
		m.selAnchor = m.cursorLine
		m.extendSelection()
		m.updateViewport()

	case "esc":
		m.selection.Clear()
		m.selecting = false
		m.highlighting = false
		m.updateViewport()

	case "c", "tab":
		m.currentMode = chatView
		m.errMsg = ""
		m.updateViewport()
		m.chatViewport.GotoBottom()
		return m, tea.Batch(m.input.Focus(), textarea.Blink)
	}

	return m, nil
}

func (m model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.currentMode = readerView
		m.input.Blur()
		m.updateViewport()
		return m, nil

	case "enter":
		return m.triggerSend()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// triggerSend starts a query round trip. It is a no-op while another send
// is in flight or when the input is blank.
func (m model) triggerSend() (tea.Model, tea.Cmd) {
	input := m.input.Value()
	if strings.TrimSpace(input) == "" || m.sending {
		return m, nil
	}

	sel := docs.Read(m.doc, m.selection)

	m.sending = true
	m.pendingInput = strings.TrimSpace(input)
	m.errMsg = ""
	m.indicator.SetMessage("Thinking...")
	m.updateViewport()
	m.chatViewport.GotoBottom()

	return m, tea.Batch(
		sendQueryCmd(context.Background(), m.controller, input, sel),
		tickCmd(),
	)
}

func (m *model) setDocument(doc *docs.Document) {
	m.doc = doc
	m.docLines = strings.Split(doc.Text, "\n")
	m.lineStart = make([]int, len(m.docLines))
	offset := 0
	for i, line := range m.docLines {
		m.lineStart[i] = offset
		offset += utf8.RuneCountInString(line) + 1
	}
	m.cursorLine = 0
	m.selection.Clear()
	m.selecting = false
	m.highlighting = false
	m.controller.SetPageURL(doc.URL)
}

// extendSelection keeps the selection spanning the lines between the anchor
// and the cursor while selection mode is active.
func (m *model) extendSelection() {
	if !m.selecting || len(m.docLines) == 0 {
		return
	}
	first, last := m.selAnchor, m.cursorLine
	if first > last {
		first, last = last, first
	}
	m.selection.Start = m.lineStart[first]
	m.selection.End = m.lineStart[last] + utf8.RuneCountInString(m.docLines[last])
}

func (m *model) layoutViewports() {
	viewHeight := m.height - 3
	if viewHeight < 1 {
		viewHeight = 1
	}

	if m.currentMode == readerView {
		m.readerViewport = resize(m.readerViewport, m.width, viewHeight)
		return
	}

	leftWidth := m.width/2 - 1
	rightWidth := m.width - leftWidth - 1
	m.readerViewport = resize(m.readerViewport, leftWidth, viewHeight)
	// Chat column keeps room for the error slot and the input box.
	chatHeight := viewHeight - m.input.Height() - 2
	if chatHeight < 1 {
		chatHeight = 1
	}
	m.chatViewport = resize(m.chatViewport, rightWidth, chatHeight)
	m.input.SetWidth(rightWidth - 2)
}

func resize(vp viewport.Model, width, height int) viewport.Model {
	if vp.Width == 0 && vp.Height == 0 {
		return viewport.New(width, height)
	}
	vp.Width = width
	vp.Height = height
	return vp
}

func (m *model) updateViewport() {
	m.layoutViewports()
	m.readerViewport.SetContent(m.renderReader())
	if m.currentMode == chatView {
		m.chatViewport.SetContent(m.renderMessages())
	}
}

func (m model) renderReader() string {
	if m.doc == nil {
		return "Loading documentation..."
	}

	selStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("57")).
		Foreground(lipgloss.Color("255"))
	flashStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("226")).
		Foreground(lipgloss.Color("16"))
	cursorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")).
		Bold(true)

	var s strings.Builder
	for i, line := range m.docLines {
		cursor := "  "
		if i == m.cursorLine {
			cursor = cursorStyle.Render("> ")
		}

		rendered := line
		if m.lineSelected(i) {
			if m.highlighting {
				rendered = flashStyle.Render(line)
			} else {
				rendered = selStyle.Render(line)
			}
		}

		s.WriteString(cursor + rendered + "\n")
	}
	return s.String()
}

func (m model) lineSelected(i int) bool {
	if m.selection.Empty() || i >= len(m.lineStart) {
		return false
	}
	lineEnd := m.lineStart[i] + utf8.RuneCountInString(m.docLines[i])
	return m.lineStart[i] < m.selection.End && lineEnd > m.selection.Start
}

func (m model) renderMessages() string {
	userStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")).
		Bold(true)
	assistantStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)
	contentStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))
	sourceStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	wrapWidth := m.chatViewport.Width - 4
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	var s strings.Builder

	if len(m.messages) == 0 && m.pendingInput == "" {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
		s.WriteString(emptyStyle.Render("Ask me anything about the book content!") + "\n")
		s.WriteString(emptyStyle.Render("Select text in the reader with 'v' to give the answer more context."))
		return s.String()
	}

	for _, msg := range m.messages {
		label := userStyle.Render("You")
		if msg.Role == models.RoleAssistant {
			label = assistantStyle.Render("Assistant")
		}
		s.WriteString(label + "\n")
		for _, line := range wrapText(msg.Content, wrapWidth) {
			s.WriteString("  " + contentStyle.Render(line) + "\n")
		}
		for i, source := range msg.Sources {
			s.WriteString("  " + sourceStyle.Render(renderSource(i, source)) + "\n")
		}
		s.WriteString("\n")
	}

	if m.pendingInput != "" {
		s.WriteString(userStyle.Render("You") + "\n")
		for _, line := range wrapText(m.pendingInput, wrapWidth) {
			s.WriteString("  " + contentStyle.Render(line) + "\n")
		}
		s.WriteString("\n")
	}

	if m.sending {
		s.WriteString(m.indicator.View())
	}

	return s.String()
}

// renderSource renders one citation line. Sources without a URL fall back
// to a content preview.
func renderSource(index int, source models.Source) string {
	if source.URL != "" {
		return fmt.Sprintf("[%d] %s (%s)", index+1, source.Title, source.URL)
	}
	if source.Content != "" {
		return fmt.Sprintf("[%d] %s - %s", index+1, source.Title, truncate(source.Content, 60))
	}
	return fmt.Sprintf("[%d] %s", index+1, source.Title)
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n", m.err)
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	if m.currentMode == readerView {
		return fmt.Sprintf("%s\n%s\n%s", header, m.readerViewport.View(), footer)
	}
	return fmt.Sprintf("%s\n%s\n%s", header, m.renderSplitView(), footer)
}

func (m model) renderSplitView() string {
	leftStyle := lipgloss.NewStyle().
		Width(m.readerViewport.Width).
		Height(m.readerViewport.Height)

	dividerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("238"))

	divider := strings.Builder{}
	for i := 0; i < m.readerViewport.Height; i++ {
		divider.WriteString("│")
		if i < m.readerViewport.Height-1 {
			divider.WriteString("\n")
		}
	}

	errorLine := ""
	if m.errMsg != "" {
		errorLine = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Render("Error: " + m.errMsg)
	}

	rightColumn := lipgloss.JoinVertical(
		lipgloss.Left,
		m.chatViewport.View(),
		errorLine,
		m.input.View(),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(m.readerViewport.View()),
		dividerStyle.Render(divider.String()),
		rightColumn,
	)
}

func (m model) renderHeader() string {
	title := "Book Assistant"
	if m.doc != nil {
		title = fmt.Sprintf("Book Assistant - %s", m.doc.Title)
	}

	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("63"))

	return style.Render(title)
}

func (m model) renderFooter() string {
	var info string
	if m.currentMode == readerView {
		info = "↑/↓: move • ←/→: page • v: select • c: chat • q: quit"
	} else {
		info = "enter: send • alt+enter: newline • esc: close chat"
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	return style.Render(info)
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	currentLine := words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) > width {
			lines = append(lines, currentLine)
			currentLine = word
		} else {
			currentLine += " " + word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Run starts the chat TUI over the given controller and docs tree.
func Run(controller *chat.Controller, docsRoot string) error {
	p := tea.NewProgram(
		initialModel(controller, docsRoot),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
