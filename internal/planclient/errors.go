package planclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TransportError means no HTTP response was received at all.
type TransportError struct {
	BaseURL string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("plan service unreachable at %s: %v", e.BaseURL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the request gave up waiting for the service.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// HTTPError is a non-2xx response from the plan service.
type HTTPError struct {
	StatusCode int
	// Detail is the server supplied explanation, empty when the body had none.
	Detail string
	Body   string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, e.Message())
}

// MalformedRequest reports whether the service rejected the payload itself.
func (e *HTTPError) MalformedRequest() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

// Message is the user-facing text: the server detail when present,
// otherwise a generic line for the status.
func (e *HTTPError) Message() string {
	if d := strings.TrimSpace(e.Detail); d != "" {
		return d
	}
	if e.MalformedRequest() {
		return "Invalid input parameters"
	}
	return fmt.Sprintf("Server error: %d", e.StatusCode)
}

func parseHTTPError(status int, raw []byte) *HTTPError {
	return &HTTPError{
		StatusCode: status,
		Detail:     extractDetail(raw),
		Body:       strings.TrimSpace(string(raw)),
	}
}

// extractDetail understands {"detail": "text"} and the list form
// {"detail": [{"msg": "...", "loc": [...]}]} that the service sends for
// request validation errors.
func extractDetail(raw []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(env.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string        `json:"msg"`
		Loc []interface{} `json:"loc"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			msg := strings.TrimSpace(it.Msg)
			if msg == "" {
				continue
			}
			if field := lastLoc(it.Loc); field != "" {
				msg = field + ": " + msg
			}
			msgs = append(msgs, msg)
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func lastLoc(loc []interface{}) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok && s != "body" {
		return s
	}
	return ""
}
