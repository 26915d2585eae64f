// Package orchestrator drives a snapshot run to completion: an optional
// warm-up call, discovery of the batch count from batch 1, then the
// remaining batches in strict sequence with a pause between them.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/snapshot-orchestrator/pkg/batch"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/config"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/logging"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/progress"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/result"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/runstate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultWarmupPause is the pause after the warm-up call.
const DefaultWarmupPause = 2 * time.Second

// ErrDiscoveryFailed is returned when batch 1 could not be resolved. The
// total batch count is unknown without it, so the run cannot continue.
var ErrDiscoveryFailed = errors.New("batch 1 failed, total batch count unknown")

// Prometheus metrics for runs.
var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_batches_total",
		Help: "Total resolved batches by outcome",
	}, []string{"outcome"})

	runProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_run_progress_percent",
		Help: "Share of the current run's batches resolved",
	})

	warmupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_warmups_total",
		Help: "Total warm-up calls by result",
	}, []string{"result"})
)

// BatchRunner runs one batch.
type BatchRunner interface {
	RunBatch(ctx context.Context, id batch.Identity, n int) (*progress.BatchProgress, error)
}

// Orchestrator runs one snapshot run.
type Orchestrator struct {
	cfg         config.RunConfig
	exec        batch.Executor
	runner      BatchRunner
	recorder    runstate.Recorder
	sleep       batch.SleepFunc
	now         func() time.Time
	route       string
	warmupPause time.Duration
	logger      zerolog.Logger

	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner replaces the batch runner.
func WithRunner(r BatchRunner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithRecorder publishes run status to r.
func WithRecorder(r runstate.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithSleep replaces every wait of the run, including retry backoff of the
// default runner.
func WithSleep(fn batch.SleepFunc) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithWarmupPause sets the pause after the warm-up call.
func WithWarmupPause(d time.Duration) Option {
	return func(o *Orchestrator) { o.warmupPause = d }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an orchestrator that talks to the service through exec.
func New(cfg config.RunConfig, exec batch.Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		exec:        exec,
		recorder:    runstate.Nop{},
		sleep:       batch.Sleep,
		now:         time.Now,
		route:       batch.Route,
		warmupPause: DefaultWarmupPause,
		logger:      logging.NewLogger(logging.ComponentOrchestrator),
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = batch.NewRunner(exec, cfg, batch.WithSleep(o.sleep), batch.WithRoute(o.route))
	}
	return o
}

// State returns the current state of the run.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes the whole run and returns its result.
//
// Failures of batches after the first are recorded on the result and do not
// stop the run. A failure of batch 1 returns ErrDiscoveryFailed together with
// the (empty) result.
func (o *Orchestrator) Run(ctx context.Context) (*result.RunResult, error) {
	start := o.now()
	id := batch.NewIdentity(start)
	res := result.New(id.String(), start)

	logger := o.logger.With().Str("batch_id", id.String()).Logger()
	logger.Info().Str("config", o.cfg.String()).Msg("Starting snapshot run")

	if o.cfg.Warmup {
		o.transition(ctx, logger, StateWarmingUp, res, 0)
		o.warmup(ctx, logger)
	}

	o.transition(ctx, logger, StateDiscoveringTotal, res, 1)
	first, err := o.runner.RunBatch(ctx, id, 1)
	if err != nil {
		o.transition(ctx, logger, StateFailed, res, 1)
		res.Elapsed = o.now().Sub(start)
		if errors.Is(err, batch.ErrBatchFailed) {
			return res, fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
		}
		return res, fmt.Errorf("run batch 1: %w", err)
	}

	res.TotalBatches = first.TotalBatches
	if res.TotalBatches < 1 {
		logger.Warn().
			Int("total_batches", first.TotalBatches).
			Msg("Service declared no batches, treating batch 1 as the only batch")
		res.TotalBatches = 1
	}
	o.resolve(ctx, logger, res, 1, first)

	o.transition(ctx, logger, StateProcessingBatches, res, 1)
	for n := 2; n <= res.TotalBatches; n++ {
		if err := o.sleep(ctx, o.cfg.BatchDelay); err != nil {
			o.transition(ctx, logger, StateFailed, res, n)
			res.Elapsed = o.now().Sub(start)
			return res, fmt.Errorf("wait before batch %d: %w", n, err)
		}

		p, err := o.runner.RunBatch(ctx, id, n)
		if err != nil && !errors.Is(err, batch.ErrBatchFailed) {
			o.transition(ctx, logger, StateFailed, res, n)
			res.Elapsed = o.now().Sub(start)
			return res, fmt.Errorf("run batch %d: %w", n, err)
		}
		o.resolve(ctx, logger, res, n, p)
	}

	res.Elapsed = o.now().Sub(start)
	o.transition(ctx, logger, StateCompleted, res, res.TotalBatches)

	logger.Info().
		Int("total_batches", res.TotalBatches).
		Int("completed_batches", res.CompletedBatches).
		Int("failed_batches", res.FailedBatches).
		Dur("elapsed", res.Elapsed).
		Msg("Snapshot run completed")

	return res, nil
}

// warmup issues one best-effort, non-mutating call. Failures are logged only.
func (o *Orchestrator) warmup(ctx context.Context, logger zerolog.Logger) {
	logger.Info().Str("route", o.route).Msg("Warming up snapshot service")

	if err := o.exec.Do(ctx, http.MethodGet, o.route, nil, nil); err != nil {
		warmupsTotal.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Msg("Warm-up call failed, continuing")
	} else {
		warmupsTotal.WithLabelValues("ok").Inc()
		logger.Info().Msg("Warm-up call succeeded")
	}

	if err := o.sleep(ctx, o.warmupPause); err != nil {
		logger.Warn().Err(err).Msg("Warm-up pause interrupted")
	}
}

// resolve records the outcome of batch n. A nil progress is a failed batch.
func (o *Orchestrator) resolve(ctx context.Context, logger zerolog.Logger, res *result.RunResult, n int, p *progress.BatchProgress) {
	if p == nil {
		res.FailedBatches++
		batchesTotal.WithLabelValues("failed").Inc()
	} else {
		res.Fold(p, n)
		res.CompletedBatches++
		batchesTotal.WithLabelValues("completed").Inc()
	}
	runProgress.Set(res.Percent())

	event := logger.Info()
	if p == nil {
		event = logger.Warn()
	}
	event.
		Int("batch_number", n).
		Int("total_batches", res.TotalBatches).
		Bool("completed", p != nil).
		Float64("progress_pct", res.Percent()).
		Msgf("Batch %d/%d resolved (%.0f%%)", n, res.TotalBatches, res.Percent())

	o.record(ctx, logger, res, n)
}

func (o *Orchestrator) transition(ctx context.Context, logger zerolog.Logger, to State, res *result.RunResult, current int) {
	if !canTransition(o.state, to) {
		logger.Error().Str("from", string(o.state)).Str("to", string(to)).Msg("Invalid state transition")
		return
	}

	logger.Debug().Str("from", string(o.state)).Str("to", string(to)).Msg("State transition")
	o.state = to
	o.record(ctx, logger, res, current)
}

func (o *Orchestrator) record(ctx context.Context, logger zerolog.Logger, res *result.RunResult, current int) {
	status := runstate.Status{
		BatchID:          res.BatchID,
		State:            string(o.state),
		CurrentBatch:     current,
		TotalBatches:     res.TotalBatches,
		CompletedBatches: res.CompletedBatches,
		FailedBatches:    res.FailedBatches,
		ItemsProcessed:   res.TotalProcessed,
		ItemsFailed:      res.TotalFailed,
		UpdatedAt:        o.now(),
	}
	if err := o.recorder.Record(ctx, status); err != nil {
		logger.Warn().Err(err).Msg("Failed to record run status")
	}
}
