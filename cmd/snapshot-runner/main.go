// Command snapshot-runner drives a remote wallet snapshot service through all
// of its batches and prints a summary of the run.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/Sternrassler/snapshot-orchestrator/pkg/client"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/config"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/logging"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/metrics"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/orchestrator"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/result"
	"github.com/Sternrassler/snapshot-orchestrator/pkg/runstate"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultEnvFile = ".env"

type options struct {
	envFile     string
	configFile  string
	logLevel    string
	logPretty   bool
	redisURL    string
	metricsAddr string
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "snapshot-runner",
		Short: "Run a batched wallet snapshot against the snapshot service",
		Long: `snapshot-runner warms up the snapshot service, discovers the number of
batches from batch 1 and processes the remaining batches one after another,
retrying failed calls with a backoff that depends on the failure.

Run parameters are read from the environment (SNAPSHOT_*), an optional .env
file and an optional config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			envFileSet := cmd.Flags().Changed("env-file")
			return run(cmd.Context(), opts, envFileSet, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file loaded before resolving configuration")
	flags.StringVar(&opts.configFile, "config", "", "optional config file (yaml, toml or json)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.logPretty, "log-pretty", false, "human-readable console logs instead of JSON")
	flags.StringVar(&opts.redisURL, "redis-url", "", "Redis address or URL for live run status (default $REDIS_URL, disabled when empty)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "listen address for /metrics, /health and /ready (default $METRICS_ADDR, disabled when empty)")

	return cmd
}

func run(ctx context.Context, opts options, envFileSet bool, stdout, stderr io.Writer) error {
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{Level: level, Pretty: opts.logPretty, Output: stderr})
	logger := logging.NewLogger(logging.ComponentRunner)

	if err := loadEnvFile(opts.envFile, envFileSet); err != nil {
		return err
	}
	if opts.redisURL == "" {
		opts.redisURL = os.Getenv("REDIS_URL")
	}
	if opts.metricsAddr == "" {
		opts.metricsAddr = os.Getenv("METRICS_ADDR")
	}

	v := viper.New()
	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", opts.configFile, err)
		}
	}

	cfg, err := config.Resolve(config.NewViperSource(v))
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	var orchOpts []orchestrator.Option
	var ready metrics.ReadyFunc

	if opts.redisURL != "" {
		rdb, err := runstate.NewRedisClient(opts.redisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("redis", opts.redisURL).Msg("Redis unreachable, run status will not be published")
		} else {
			logger.Info().Str("redis", opts.redisURL).Msg("Publishing run status to Redis")
			orchOpts = append(orchOpts, orchestrator.WithRecorder(
				runstate.NewTracker(rdb, logging.NewLogger(logging.ComponentRunState)),
			))
		}
		ready = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	if opts.metricsAddr != "" {
		srv := metrics.Start(opts.metricsAddr, ready, logger)
		defer shutdown(srv, logger)
	}

	orch := orchestrator.New(cfg, client.New(cfg), orchOpts...)
	res, err := orch.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Str("state", string(orch.State())).Msg("Snapshot run failed")
		return err
	}

	return result.WriteSummary(stdout, res)
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing default file is not an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func shutdown(srv *metrics.Server, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Metrics server shutdown failed")
	}
}
