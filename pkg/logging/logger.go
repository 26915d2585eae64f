// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Component names used in the "component" field.
const (
	ComponentRunner       = "snapshot-runner"
	ComponentOrchestrator = "orchestrator"
	ComponentBatch        = "batch-runner"
	ComponentExecutor     = "request-executor"
	ComponentRunState     = "runstate"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a user-supplied level name.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Outbound calls (method, route, status, duration)
//   - State transitions of a run
//   - Run status writes
//
// Info: Normal operation events
//   - Run start with the effective configuration (token omitted)
//   - Warm-up result
//   - Each resolved batch with progress_pct
//   - Run completion
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts, with error_class and backoff
//   - Batches that failed after all attempts
//   - Warm-up failures
//   - Run status write failures
//
// Error: Error conditions requiring attention
//   - Batches that exhausted their attempts
//   - Discovery failure (batch 1)
//   - Configuration errors
//
// Context Fields:
//   - batch_id: run token shared by all calls of a run
//   - batch_number: 1-based batch index
//   - total_batches: batch count discovered from batch 1
//   - attempt: 1-based attempt within a batch
//   - error_class: cold_start, timeout, http, protocol, network, service, unknown
//   - backoff: wait before the next attempt
//   - progress_pct: share of batches resolved
//   - request_id: X-Request-ID of an outbound call
