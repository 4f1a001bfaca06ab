// Package transport is the HTTP boundary to the question-answering backend.
// It issues single-attempt requests and folds every possible failure into a
// small error taxonomy; retrying is the caller's decision.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/robobook/bookchat/internal/logging"
	"github.com/robobook/bookchat/pkg/models"
)

// DefaultTimeout bounds a query round trip unless the config says otherwise.
const DefaultTimeout = 30 * time.Second

// QueryMetadata travels alongside a query for server-side logging and
// retrieval hints.
type QueryMetadata struct {
	PageURL   string                   `json:"page_url,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
	Client    string                   `json:"client,omitempty"`
	Selection *models.SelectionContext `json:"selected_text_metadata,omitempty"`
}

// QueryRequest is the canonical request body for POST /query. Context is
// omitted entirely when no text is selected.
type QueryRequest struct {
	Query     string         `json:"query"`
	Context   string         `json:"context,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  *QueryMetadata `json:"metadata,omitempty"`
}

// chatResponseWire defers source decoding so loose shapes can be normalized
// before anything else sees them.
type chatResponseWire struct {
	Response   string            `json:"response"`
	Sources    []json.RawMessage `json:"sources"`
	SessionID  string            `json:"session_id"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata"`
}

// errorBody is the error detail shape servers respond with on 4xx.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Client talks to one backend instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a Client for the backend at baseURL. A non-positive
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// Send posts req to /query and returns the decoded answer. Every failure
// comes back as *Error; there is no automatic retry.
func (c *Client) Send(ctx context.Context, req QueryRequest) (*models.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	logging.Debugf("sending query to %s (session %s)", c.baseURL, req.SessionID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp)
	}

	var wire chatResponseWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &Error{Kind: KindUnknown, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return &models.ChatResponse{
		Response:   wire.Response,
		Sources:    normalizeSources(wire.Sources),
		SessionID:  wire.SessionID,
		Confidence: wire.Confidence,
		Metadata:   wire.Metadata,
	}, nil
}

// Health calls GET /health and decodes the service status map.
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var status models.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &Error{Kind: KindUnknown, Err: fmt.Errorf("failed to decode health response: %w", err)}
	}
	return &status, nil
}

// classifyTransportError maps request failures where no response arrived:
// deadline overruns become timeouts, everything reachable-related becomes a
// network error.
func classifyTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetworkError, Err: err}
}

// classifyStatus maps responses that did arrive but carried a failure
// status.
func classifyStatus(resp *http.Response) *Error {
	detail := readErrorDetail(resp.Body)
	switch {
	case resp.StatusCode >= 500:
		return &Error{Kind: KindServerUnavailable, Status: resp.StatusCode, Detail: detail}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Status: resp.StatusCode, Detail: detail}
	case resp.StatusCode == http.StatusBadRequest:
		return &Error{Kind: KindInvalidRequest, Status: resp.StatusCode, Detail: detail}
	default:
		return &Error{Kind: KindRequestFailed, Status: resp.StatusCode, Detail: detail}
	}
}

func readErrorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return ""
	}
	if eb.Error != "" {
		return eb.Error
	}
	return eb.Detail
}
