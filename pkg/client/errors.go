package client

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ErrorClass represents a classification of a failed call.
type ErrorClass string

const (
	// ErrorClassColdStart represents a service that is still starting (405, 502, 503).
	ErrorClassColdStart ErrorClass = "cold_start"

	// ErrorClassTimeout represents a call that exceeded its deadline.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassHTTP represents any other non-success status.
	ErrorClassHTTP ErrorClass = "http"

	// ErrorClassProtocol represents a response that could not be decoded.
	ErrorClassProtocol ErrorClass = "protocol"

	// ErrorClassNetwork represents a transport failure without a response.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassService represents a failure reported by the service in its payload.
	ErrorClassService ErrorClass = "service"

	// ErrorClassUnknown represents an error with no recognizable marker.
	ErrorClassUnknown ErrorClass = "unknown"
)

// TimeoutError is returned when a call exceeds the configured timeout.
type TimeoutError struct {
	Route   string
	Timeout time.Duration
	Err     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %s", e.Route, e.Timeout)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// HTTPError is returned for a non-2xx response.
type HTTPError struct {
	Route      string
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Body != "" {
		return fmt.Sprintf("request %s: HTTP %s: %s", e.Route, status, e.Body)
	}
	return fmt.Sprintf("request %s: HTTP %s", e.Route, status)
}

// ColdStart reports whether the status indicates a cold start.
func (e *HTTPError) ColdStart() bool {
	return IsColdStartStatus(e.StatusCode)
}

// ProtocolError is returned when a response body cannot be decoded into the
// expected shape.
type ProtocolError struct {
	Route string
	Err   error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("request %s: malformed response: %v", e.Route, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NetworkError is returned when the call failed without a response.
type NetworkError struct {
	Route string
	Err   error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("request %s: %v", e.Route, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// coldStartMarker matches cold-start hints in free-form messages.
var coldStartMarker = regexp.MustCompile(`cold[ -]?start|\b(405|502|503)\b`)

// IsColdStartStatus reports whether an HTTP status code indicates a cold start.
func IsColdStartStatus(code int) bool {
	switch code {
	case http.StatusMethodNotAllowed, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// Classify categorizes an error for backoff selection and observability.
// HTTP errors are classified by status, then by status text and body.
// Other typed errors are classified by type; anything else by its message.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.ColdStart() {
			return ErrorClassColdStart
		}
		if class := classifyMessage(httpErr.Error()); class != "" {
			return class
		}
		return ErrorClassHTTP
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return ErrorClassTimeout
	}

	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return ErrorClassProtocol
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return ErrorClassNetwork
	}

	if class := classifyMessage(err.Error()); class != "" {
		return class
	}
	return ErrorClassUnknown
}

// classifyMessage looks for cold-start and timeout markers in msg.
// It returns "" when msg carries neither.
func classifyMessage(msg string) ErrorClass {
	msg = strings.ToLower(msg)
	switch {
	case coldStartMarker.MatchString(msg):
		return ErrorClassColdStart
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return ErrorClassTimeout
	}
	return ""
}
