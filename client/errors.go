package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UnauthorizedMessage is the fixed user-facing text of an UnauthorizedError.
// The server's own response body is never shown.
const UnauthorizedMessage = "unauthorized: log in again"

// ErrUnauthorized matches every *UnauthorizedError via errors.Is.
var ErrUnauthorized = errors.New(UnauthorizedMessage)

// UnauthorizedError is returned for 401 and 403 responses. By the time the
// caller sees it the local session has already been cleared.
type UnauthorizedError struct {
	Status int
}

func (e *UnauthorizedError) Error() string { return UnauthorizedMessage }

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// RequestError is any other non-2xx response. Body is the raw response text.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Detail returns the "detail" field of a JSON error body if there is one,
// otherwise the trimmed raw body.
func (e *RequestError) Detail() string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil {
		switch d := body.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
	}
	return strings.TrimSpace(e.Body)
}

// ErrResponseTooLarge is the cause of a TransportError when a response body
// exceeds the client's limit.
var ErrResponseTooLarge = errors.New("response too large")

// TransportError wraps a failure to complete the HTTP round trip.
type TransportError struct {
	Method string
	URL    string
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ValidationError is a local input check failure. It never reaches the
// network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid is shorthand for constructing a *ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Message converts any error into the single status line shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnauthorized) {
		return UnauthorizedMessage
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if d := reqErr.Detail(); d != "" {
			return fmt.Sprintf("HTTP %d: %s", reqErr.Status, d)
		}
	}
	return err.Error()
}
