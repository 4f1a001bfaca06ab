// Package chat orchestrates a conversation: it validates input, attaches
// selection context, drives the transport, and records both turns in the
// session store. The TUI and the one-shot ask command are thin skins over
// the same Controller.
package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robobook/bookchat/internal/store"
	"github.com/robobook/bookchat/internal/transport"
	"github.com/robobook/bookchat/pkg/models"
)

// ErrBusy is returned when a send is invoked while another is still in
// flight. The second attempt is dropped, not queued.
var ErrBusy = errors.New("a request is already in flight")

// QuerySender is the transport surface the controller needs.
type QuerySender interface {
	Send(ctx context.Context, req transport.QueryRequest) (*models.ChatResponse, error)
}

// Result is the outcome of a successful send: the two recorded turns and
// the session they now belong to.
type Result struct {
	User      models.Message
	Assistant models.Message
	Response  *models.ChatResponse
	Session   *models.Session
}

// Controller runs the send pipeline for one widget instance. At most one
// send is in flight at a time.
type Controller struct {
	store      *store.Store
	client     QuerySender
	clientName string
	sending    atomic.Bool

	// pageURL is written from the UI loop and read from send goroutines.
	mu      sync.Mutex
	pageURL string
}

// NewController wires a controller to its store and transport. pageURL
// identifies the page the widget is mounted on and travels in session and
// query metadata.
func NewController(sessions *store.Store, client QuerySender, clientName, pageURL string) *Controller {
	return &Controller{
		store:      sessions,
		client:     client,
		clientName: clientName,
		pageURL:    pageURL,
	}
}

// SetPageURL updates the page the widget reports in metadata, used when the
// reader navigates to a different doc page.
func (c *Controller) SetPageURL(url string) {
	c.mu.Lock()
	c.pageURL = url
	c.mu.Unlock()
	c.store.UpdateMetadata(map[string]string{"page_url": url})
}

func (c *Controller) currentPageURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageURL
}

// Sending reports whether a send is currently in flight.
func (c *Controller) Sending() bool {
	return c.sending.Load()
}

// Session returns the conversation as currently recorded, or nil before the
// first send.
func (c *Controller) Session() *models.Session {
	return c.store.Current()
}

// Send runs one query round trip. The user's message is appended to the
// session before the request goes out and is kept even when the request
// fails: the user did send something. Validation failures and transport
// failures both surface as errors that UserMessage can turn into the fixed
// display string.
func (c *Controller) Send(ctx context.Context, input string, sel *models.SelectionContext) (*Result, error) {
	if !c.sending.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.sending.Store(false)

	query, err := ValidateQuery(input)
	if err != nil {
		return nil, err
	}

	var contextText string
	if sel != nil {
		contextText, err = ValidateContext(sel.Text)
		if err != nil {
			return nil, err
		}
		// The metadata copy carries the same sanitized text as the context
		// field.
		cleaned := *sel
		cleaned.Text = contextText
		sel = &cleaned
	}

	pageURL := c.currentPageURL()

	session := c.store.Current()
	if session == nil {
		session = c.store.Create(map[string]string{
			"page_url": pageURL,
			"client":   c.clientName,
		})
	}

	session = c.store.AddMessage(models.Message{
		Role:    models.RoleUser,
		Content: query,
	})
	userMsg := session.Messages[len(session.Messages)-1]

	req := transport.QueryRequest{
		Query:     query,
		SessionID: session.ID,
		Metadata: &transport.QueryMetadata{
			PageURL:   pageURL,
			Timestamp: time.Now(),
			Client:    c.clientName,
			Selection: sel,
		},
	}
	if contextText != "" {
		req.Context = contextText
	}

	resp, err := c.client.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	session = c.store.AddMessage(models.Message{
		Role:    models.RoleAssistant,
		Content: resp.Response,
		Sources: resp.Sources,
	})
	assistantMsg := session.Messages[len(session.Messages)-1]

	return &Result{
		User:      userMsg,
		Assistant: assistantMsg,
		Response:  resp,
		Session:   session,
	}, nil
}

// UserMessage converts any error out of Send into the string shown in the
// widget's error slot. Nothing the pipeline produces is allowed to escape
// as a raw internal error.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.UserMessage()
	}
	var terr *transport.Error
	if errors.As(err, &terr) {
		return terr.UserMessage()
	}
	if errors.Is(err, ErrBusy) {
		return "A request is already in progress."
	}
	return "Request error: " + err.Error()
}
