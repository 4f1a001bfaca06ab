package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestSendSuccess tests a full query round trip
func TestSendSuccess(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("Expected POST /query, got %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("Request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"response": "A humanoid robot is...",
			"sources": [{"title": "Ch.1", "url": "/docs/ch1"}],
			"session_id": "s1",
			"confidence": 0.92
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	resp, err := client.Send(context.Background(), QueryRequest{
		Query:     "What is a humanoid robot?",
		SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if resp.Response != "A humanoid robot is..." {
		t.Errorf("Unexpected response text: %q", resp.Response)
	}
	if resp.SessionID != "s1" {
		t.Errorf("Unexpected session id: %q", resp.SessionID)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Title != "Ch.1" || resp.Sources[0].URL != "/docs/ch1" {
		t.Errorf("Unexpected sources: %+v", resp.Sources)
	}

	// No selection context was supplied, so the field must be absent, not
	// empty.
	if _, present := gotBody["context"]; present {
		t.Error("Request body should omit context entirely when none is set")
	}
	if gotBody["query"] != "What is a humanoid robot?" {
		t.Errorf("Unexpected query in request body: %v", gotBody["query"])
	}
}

// TestSendStatusTaxonomy tests the mapping from HTTP status to error kind
func TestSendStatusTaxonomy(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    Kind
		wantMessage string
	}{
		{
			name:        "server error",
			status:      503,
			wantKind:    KindServerUnavailable,
			wantMessage: "Server error (503): The service is temporarily unavailable. Please try again later.",
		},
		{
			name:        "rate limited",
			status:      429,
			wantKind:    KindRateLimited,
			wantMessage: "Rate limit exceeded: Please wait before sending another request.",
		},
		{
			name:        "bad request with detail",
			status:      400,
			body:        `{"error": "query too vague"}`,
			wantKind:    KindInvalidRequest,
			wantMessage: "Invalid request: query too vague",
		},
		{
			name:        "bad request without detail",
			status:      400,
			wantKind:    KindInvalidRequest,
			wantMessage: "Invalid request: Please check your input and try again.",
		},
		{
			name:        "other client error",
			status:      404,
			wantKind:    KindRequestFailed,
			wantMessage: "Request failed (404): An error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					io.WriteString(w, tt.body)
				}
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second)
			_, err := client.Send(context.Background(), QueryRequest{Query: "q"})
			if err == nil {
				t.Fatal("Send should fail")
			}

			var terr *Error
			if !errors.As(err, &terr) {
				t.Fatalf("Expected *Error, got %T", err)
			}
			if terr.Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %s", tt.wantKind, terr.Kind)
			}
			if terr.UserMessage() != tt.wantMessage {
				t.Errorf("User message mismatch:\n got: %q\nwant: %q", terr.UserMessage(), tt.wantMessage)
			}
		})
	}
}

// TestSendTimeout tests that a slow server maps to the timeout kind
func TestSendTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond)
	_, err := client.Send(context.Background(), QueryRequest{Query: "q"})
	if err == nil {
		t.Fatal("Send should time out")
	}

	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if terr.Kind != KindTimeout {
		t.Errorf("Expected kind %s, got %s", KindTimeout, terr.Kind)
	}
	want := "Request timeout: The server took too long to respond. Please try again."
	if terr.UserMessage() != want {
		t.Errorf("User message mismatch: %q", terr.UserMessage())
	}
}

// TestSendNetworkError tests that an unreachable backend maps to
// network_error
func TestSendNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	client := NewClient(server.URL, time.Second)
	_, err := client.Send(context.Background(), QueryRequest{Query: "q"})
	if err == nil {
		t.Fatal("Send should fail against a closed server")
	}

	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if terr.Kind != KindNetworkError {
		t.Errorf("Expected kind %s, got %s", KindNetworkError, terr.Kind)
	}
	want := "Network error: Unable to reach the backend service. Please check your connection."
	if terr.UserMessage() != want {
		t.Errorf("User message mismatch: %q", terr.UserMessage())
	}
}

// TestSendMalformedResponse tests that undecodable success bodies map to
// unknown
func TestSendMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Send(context.Background(), QueryRequest{Query: "q"})
	if err == nil {
		t.Fatal("Send should fail on malformed body")
	}

	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if terr.Kind != KindUnknown {
		t.Errorf("Expected kind %s, got %s", KindUnknown, terr.Kind)
	}
}

// TestHealth tests the health endpoint round trip
func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" || r.Method != http.MethodGet {
			t.Errorf("Expected GET /health, got %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"status": "ok", "services": {"retrieval": "ok", "generation": "ok"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	status, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("Unexpected status: %q", status.Status)
	}
	if status.Services["retrieval"] != "ok" {
		t.Errorf("Unexpected services map: %v", status.Services)
	}
}

// TestHealthFailure tests that a failing health endpoint yields a typed
// error
func TestHealthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Health(context.Background())

	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if terr.Kind != KindServerUnavailable {
		t.Errorf("Expected kind %s, got %s", KindServerUnavailable, terr.Kind)
	}
}
