// Package client issues single, time-bounded calls to the remote snapshot
// service and classifies their outcome. It has no retry logic and no
// knowledge of batches.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/snapshot-orchestrator/pkg/config"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/logging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for outbound calls.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_requests_total",
		Help: "Total calls to the snapshot service by route, method and status",
	}, []string{"route", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapshot_request_duration_seconds",
		Help:    "Snapshot service call duration in seconds by route",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"route"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_request_errors_total",
		Help: "Total failed calls to the snapshot service by error class",
	}, []string{"class"})
)

// maxErrorBody caps how much of a non-success body is kept on HTTPError.
const maxErrorBody = 512

// Client is the request executor for the snapshot service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates a client for the service described by cfg.
func New(cfg config.RunConfig) *Client {
	return &Client{
		// Timeouts are enforced per call through the request context.
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		timeout:    cfg.RequestTimeout,
		logger:     logging.NewLogger(logging.ComponentExecutor),
	}
}

// Do issues one call and, when out is non-nil, decodes the JSON body into it.
//
// Errors are typed: *TimeoutError when the configured timeout expires,
// *HTTPError for non-2xx statuses, *ProtocolError when the body cannot be
// decoded and *NetworkError for any other transport failure.
func (c *Client) Do(ctx context.Context, method, route string, query url.Values, out any) error {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + route
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debug().
		Str("route", route).
		Str("method", method).
		Str("request_id", requestID).
		Msg("Executing snapshot request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = c.transportError(ctx, route, err)
		c.record(route, method, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		herr := &HTTPError{
			Route:      route,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
		c.record(route, method, strconv.Itoa(resp.StatusCode), herr)

		c.logger.Warn().
			Str("route", route).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(Classify(herr))).
			Msg("Snapshot service returned error status")
		return herr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = c.transportError(ctx, route, err)
		c.record(route, method, "error", err)
		return err
	}

	requestsTotal.WithLabelValues(route, method, strconv.Itoa(resp.StatusCode)).Inc()

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		perr := &ProtocolError{Route: route, Err: err}
		errorsTotal.WithLabelValues(string(ErrorClassProtocol)).Inc()
		return perr
	}

	return nil
}

// transportError converts a failed round trip into a typed error.
func (c *Client) transportError(parent context.Context, route string, err error) error {
	// Caller cancellation is not a timeout of this call.
	if parent.Err() != nil {
		return fmt.Errorf("request %s: %w", route, parent.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Route: route, Timeout: c.timeout, Err: err}
	}

	return &NetworkError{Route: route, Err: err}
}

func (c *Client) record(route, method, status string, err error) {
	requestsTotal.WithLabelValues(route, method, status).Inc()
	errorsTotal.WithLabelValues(string(Classify(err))).Inc()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
