package transport

import "fmt"

// Kind classifies a failed query into the fixed taxonomy every caller
// handles. Each kind maps to exactly one user-facing message.
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindServerUnavailable Kind = "server_unavailable"
	KindRateLimited       Kind = "rate_limited"
	KindInvalidRequest    Kind = "invalid_request"
	KindRequestFailed     Kind = "request_failed"
	KindNetworkError      Kind = "network_error"
	KindUnknown           Kind = "unknown"
)

// Error is the single error type returned by the transport. Status is the
// HTTP status when a response was received, Detail any server-supplied
// explanation, and Err the underlying cause when one exists.
type Error struct {
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Detail != "":
		return fmt.Sprintf("query error [%s] status %d: %s", e.Kind, e.Status, e.Detail)
	case e.Status != 0:
		return fmt.Sprintf("query error [%s] status %d", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("query error [%s]: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("query error [%s]", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the fixed display string for this error. The exact
// wording is part of the contract with the widget.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindTimeout:
		return "Request timeout: The server took too long to respond. Please try again."
	case KindServerUnavailable:
		return fmt.Sprintf("Server error (%d): The service is temporarily unavailable. Please try again later.", e.Status)
	case KindRateLimited:
		return "Rate limit exceeded: Please wait before sending another request."
	case KindInvalidRequest:
		detail := e.Detail
		if detail == "" {
			detail = "Please check your input and try again."
		}
		return fmt.Sprintf("Invalid request: %s", detail)
	case KindRequestFailed:
		detail := e.Detail
		if detail == "" {
			detail = "An error occurred"
		}
		return fmt.Sprintf("Request failed (%d): %s", e.Status, detail)
	case KindNetworkError:
		return "Network error: Unable to reach the backend service. Please check your connection."
	default:
		if e.Err != nil {
			return fmt.Sprintf("Request error: %v", e.Err)
		}
		return "Request error: an unexpected error occurred"
	}
}
