package client

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsColdStartStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected bool
	}{
		{405, true},
		{502, true},
		{503, true},
		{500, false},
		{504, false},
		{404, false},
		{200, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			if got := IsColdStartStatus(tt.code); got != tt.expected {
				t.Errorf("IsColdStartStatus(%d) = %v, want %v", tt.code, got, tt.expected)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ""},
		{"cold start status", &HTTPError{StatusCode: 503}, ErrorClassColdStart},
		{"wrapped cold start status", fmt.Errorf("batch 2: %w", &HTTPError{StatusCode: 405}), ErrorClassColdStart},
		{"other status", &HTTPError{StatusCode: 500}, ErrorClassHTTP},
		{"status with cold start body", &HTTPError{StatusCode: 500, Body: "Function cold start in progress"}, ErrorClassColdStart},
		{"gateway timeout status", &HTTPError{StatusCode: 504, Status: "504 Gateway Timeout", Body: "upstream request timeout"}, ErrorClassTimeout},
		{"status with plain body", &HTTPError{StatusCode: 400, Body: `{"error":"bad batchSize"}`}, ErrorClassHTTP},
		{"timeout", &TimeoutError{Route: "/x", Timeout: time.Second}, ErrorClassTimeout},
		{"protocol", &ProtocolError{Route: "/x", Err: errors.New("unexpected EOF")}, ErrorClassProtocol},
		{"network", &NetworkError{Route: "/x", Err: errors.New("connection refused")}, ErrorClassNetwork},
		{"network with port digits", &NetworkError{Route: "/x", Err: errors.New("dial tcp 127.0.0.1:50312: connection refused")}, ErrorClassNetwork},
		{"text cold start", errors.New("Function is in cold start, try again"), ErrorClassColdStart},
		{"text cold-start", errors.New("cold-start in progress"), ErrorClassColdStart},
		{"text status code", errors.New("upstream returned 502"), ErrorClassColdStart},
		{"text timeout", errors.New("worker timeout while fetching UTxOs"), ErrorClassTimeout},
		{"text timed out", errors.New("query timed out"), ErrorClassTimeout},
		{"text port is not a status", errors.New("listener on :45033 failed"), ErrorClassUnknown},
		{"unrecognized", errors.New("database constraint violated"), ErrorClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expected {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestHTTPError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *HTTPError
		expected string
	}{
		{
			name:     "with status text and body",
			err:      &HTTPError{Route: "/batch", StatusCode: 503, Status: "503 Service Unavailable", Body: "booting"},
			expected: "request /batch: HTTP 503 Service Unavailable: booting",
		},
		{
			name:     "status derived from code",
			err:      &HTTPError{Route: "/batch", StatusCode: 502},
			expected: "request /batch: HTTP 502 Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTimeoutError_Unwrap(t *testing.T) {
	inner := errors.New("context deadline exceeded")
	err := &TimeoutError{Route: "/batch", Timeout: 45 * time.Second, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if got := err.Error(); got != "request /batch timed out after 45s" {
		t.Errorf("Error() = %q", got)
	}
}

func TestProtocolError_Unwrap(t *testing.T) {
	inner := errors.New("invalid character")
	err := &ProtocolError{Route: "/batch", Err: inner}

	if err.Unwrap() != inner {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), inner)
	}
}
