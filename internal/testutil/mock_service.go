// Package testutil provides testing utilities for the snapshot orchestrator.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/snapshot-orchestrator/pkg/progress"
)

// MockReply defines one response of the mock snapshot service.
type MockReply struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockRequest is a request recorded by the mock.
type MockRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
}

// BatchNumber returns the batchNumber query parameter, or 0.
func (r MockRequest) BatchNumber() int {
	n, _ := strconv.Atoi(r.Query.Get("batchNumber"))
	return n
}

// MockService is a scriptable mock of the snapshot batch service.
//
// Replies for a batch number are served in order; the last one repeats.
// Batches without a script get a generic failure body.
type MockService struct {
	server *httptest.Server
	mu     sync.Mutex

	warmup   MockReply
	scripts  map[int][]MockReply
	served   map[int]int
	requests []MockRequest
}

// NewMockService creates and starts a mock snapshot service.
func NewMockService() *MockService {
	mock := &MockService{
		warmup:  MockReply{StatusCode: http.StatusOK, Body: `{"status":"ok"}`},
		scripts: make(map[int][]MockReply),
		served:  make(map[int]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockService) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockService) Close() {
	m.server.Close()
}

// SetWarmup sets the reply to non-POST calls.
func (m *MockService) SetWarmup(reply MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warmup = reply
}

// Script sets the replies for batch n.
func (m *MockService) Script(n int, replies ...MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[n] = replies
}

// Requests returns a copy of every recorded request.
func (m *MockService) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// BatchCalls returns how many POSTs batch n received.
func (m *MockService) BatchCalls(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.served[n]
}

// BatchOrder returns the batch numbers of all POSTs in arrival order.
func (m *MockService) BatchOrder() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for _, r := range m.requests {
		if r.Method == http.MethodPost {
			out = append(out, r.BatchNumber())
		}
	}
	return out
}

func (m *MockService) handle(w http.ResponseWriter, r *http.Request) {
	req := MockRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var reply MockReply
	if r.Method != http.MethodPost {
		reply = m.warmup
	} else {
		n := req.BatchNumber()
		reply = m.next(n)
		m.served[n]++
	}
	m.mu.Unlock()

	write(w, r, reply)
}

// next picks the reply for the next call of batch n. Callers hold m.mu.
func (m *MockService) next(n int) MockReply {
	script := m.scripts[n]
	if len(script) == 0 {
		return NewFailureReply("no script for batch " + strconv.Itoa(n))
	}
	i := m.served[n]
	if i >= len(script) {
		i = len(script) - 1
	}
	return script[i]
}

func write(w http.ResponseWriter, r *http.Request, reply MockReply) {
	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for key, value := range reply.Headers {
		w.Header().Set(key, value)
	}

	status := reply.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if reply.Body != "" {
		w.Write([]byte(reply.Body))
	}
}

// NewProgressReply creates a successful reply carrying p.
func NewProgressReply(p progress.BatchProgress) MockReply {
	return jsonReply(http.StatusOK, progress.BatchResponse{Success: true, Progress: &p})
}

// NewFailureReply creates a 200 reply with success:false.
func NewFailureReply(message string) MockReply {
	return jsonReply(http.StatusOK, progress.BatchResponse{Success: false, Message: message})
}

// NewStatusReply creates a reply with the given status and a JSON error body.
func NewStatusReply(code int) MockReply {
	return jsonReply(code, map[string]string{"error": http.StatusText(code)})
}

// NewColdStartReply creates a 503 reply like a gateway in front of a cold
// serverless function.
func NewColdStartReply() MockReply {
	return NewStatusReply(http.StatusServiceUnavailable)
}

func jsonReply(code int, v any) MockReply {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return MockReply{StatusCode: code, Body: string(body)}
}
