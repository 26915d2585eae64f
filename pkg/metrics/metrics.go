// Package metrics exposes the Prometheus metrics of the snapshot runner.
// All metrics are defined in their respective packages (client, batch,
// orchestrator, runstate) and registered via promauto.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ReadyFunc reports whether the process dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// NewHandler returns a mux serving /metrics, /health and /ready.
// A nil ready always reports ready.
func NewHandler(ready ReadyFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(ready))
	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func readyHandler(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// Server serves the metrics handler in the background.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// Start listens on addr and serves NewHandler(ready) until Shutdown.
func Start(addr string, ready ReadyFunc, logger zerolog.Logger) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(ready),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()

	return s
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - snapshot_requests_total{route, method, status} (Counter): Calls by route, method and HTTP status
//   - snapshot_request_duration_seconds{route} (Histogram): Call duration by route
//   - snapshot_request_errors_total{class} (Counter): Failed calls by error class
//
// Retry Metrics (pkg/batch):
//   - snapshot_batch_retries_total{error_class} (Counter): Retry attempts by error class
//   - snapshot_batch_retry_backoff_seconds{error_class} (Histogram): Backoff by error class
//   - snapshot_batch_exhausted_total{error_class} (Counter): Batches that exhausted their attempts
//
// Run Metrics (pkg/orchestrator):
//   - snapshot_batches_total{outcome} (Counter): Resolved batches, completed or failed
//   - snapshot_run_progress_percent (Gauge): Share of the current run's batches resolved
//   - snapshot_warmups_total{result} (Counter): Warm-up calls by result
//
// Run State Metrics (pkg/runstate):
//   - snapshot_runstate_writes_total{result} (Counter): Status writes to Redis by result
//
// Example Prometheus Queries:
//
//   # Cold start retry rate
//   rate(snapshot_batch_retries_total{error_class="cold_start"}[5m])
//
//   # Failed batch ratio
//   sum(snapshot_batches_total{outcome="failed"}) / sum(snapshot_batches_total)
//
//   # P95 call latency
//   histogram_quantile(0.95, rate(snapshot_request_duration_seconds_bucket[5m]))
