package batch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/snapshot-orchestrator/pkg/client"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/config"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/logging"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/progress"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Route is the batch-processing route of the snapshot service.
const Route = "/functions/v1/wallet-snapshot-batch"

// Prometheus metrics for batch attempts.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_batch_retries_total",
		Help: "Total number of batch retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapshot_batch_retry_backoff_seconds",
		Help:    "Backoff before a batch retry by error class",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
	}, []string{"error_class"})

	exhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_batch_exhausted_total",
		Help: "Total number of batches that exhausted their attempts by last error class",
	}, []string{"error_class"})
)

// Executor issues a single call to the snapshot service.
type Executor interface {
	Do(ctx context.Context, method, route string, query url.Values, out any) error
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Runner executes one batch with bounded retries.
type Runner struct {
	exec   Executor
	cfg    config.RunConfig
	route  string
	sleep  SleepFunc
	logger zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithSleep replaces the wait between attempts.
func WithSleep(fn SleepFunc) Option {
	return func(r *Runner) { r.sleep = fn }
}

// WithRoute overrides the batch route.
func WithRoute(route string) Option {
	return func(r *Runner) { r.route = route }
}

// WithLogger sets the runner's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a batch runner.
func NewRunner(exec Executor, cfg config.RunConfig, opts ...Option) *Runner {
	r := &Runner{
		exec:   exec,
		cfg:    cfg,
		route:  Route,
		sleep:  Sleep,
		logger: logging.NewLogger(logging.ComponentBatch),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// outcome is the decision taken after one attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetry
	outcomeExhausted
)

// attemptResult is the result of one call.
type attemptResult struct {
	progress *progress.BatchProgress
	err      error
}

// decide maps an attempt result to the next step.
func (r *Runner) decide(res attemptResult, attempt int) outcome {
	switch {
	case res.err == nil:
		return outcomeSuccess
	case attempt >= r.maxAttempts():
		return outcomeExhausted
	default:
		return outcomeRetry
	}
}

func (r *Runner) maxAttempts() int {
	if r.cfg.MaxRetries < 1 {
		return 1
	}
	return r.cfg.MaxRetries
}

// RunBatch processes batch number n of the run identified by id.
//
// It returns the batch progress on the first successful attempt. When every
// attempt fails it returns an error matching ErrBatchFailed. Invalid
// arguments return ErrInvalidArgument; a cancelled ctx returns ctx's error.
func (r *Runner) RunBatch(ctx context.Context, id Identity, n int) (*progress.BatchProgress, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: batch number %d, must be >= 1", ErrInvalidArgument, n)
	}
	if strings.TrimSpace(id.String()) == "" {
		return nil, fmt.Errorf("%w: empty batch identity", ErrInvalidArgument)
	}

	logger := r.logger.With().
		Str("batch_id", id.String()).
		Int("batch_number", n).
		Int("max_retries", r.maxAttempts()).
		Logger()

	for attempt := 1; ; attempt++ {
		res := r.attempt(ctx, id, n)

		switch r.decide(res, attempt) {
		case outcomeSuccess:
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("Batch succeeded after retry")
			}
			return res.progress, nil

		case outcomeExhausted:
			class := classify(res.err)
			exhaustedTotal.WithLabelValues(string(class)).Inc()
			logger.Error().
				Err(res.err).
				Int("attempt", attempt).
				Str("error_class", string(class)).
				Msg("Batch failed, retry attempts exhausted")
			return nil, &FailedError{BatchNumber: n, Attempts: attempt, Err: res.err}

		case outcomeRetry:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("batch %d: %w", n, ctx.Err())
			}

			class := classify(res.err)
			wait := Backoff(class, attempt, r.cfg.BatchDelay)

			retriesTotal.WithLabelValues(string(class)).Inc()
			retryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())

			event := logger.Warn().
				Int("attempt", attempt).
				Str("error_class", string(class)).
				Dur("backoff", wait)

			var svcErr *ServiceError
			if errors.As(res.err, &svcErr) {
				event.Str("service_message", svcErr.Message).Msg("Service reported batch failure, retrying after backoff")
			} else {
				event.Err(res.err).Msg("Batch call failed, retrying after backoff")
			}

			if err := r.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("batch %d: %w", n, err)
			}
		}
	}
}

// attempt performs one clean call for batch n.
func (r *Runner) attempt(ctx context.Context, id Identity, n int) attemptResult {
	query := url.Values{}
	query.Set("batchId", id.String())
	query.Set("batchNumber", strconv.Itoa(n))
	query.Set("batchSize", strconv.Itoa(r.cfg.BatchSize))

	var resp progress.BatchResponse
	if err := r.exec.Do(ctx, http.MethodPost, r.route, query, &resp); err != nil {
		return attemptResult{err: err}
	}

	if !resp.Success {
		return attemptResult{err: &ServiceError{Message: resp.Message}}
	}
	if resp.Progress == nil {
		return attemptResult{err: &client.ProtocolError{
			Route: r.route,
			Err:   errors.New("success response without progress"),
		}}
	}

	return attemptResult{progress: resp.Progress}
}
