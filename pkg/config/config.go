// Package config resolves the operating parameters of a snapshot run from an
// external key/value source and validates them before any network activity.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Configuration keys.
const (
	KeyBaseURL        = "SNAPSHOT_API_URL"
	KeyToken          = "SNAPSHOT_API_TOKEN"
	KeyBatchSize      = "SNAPSHOT_BATCH_SIZE"
	KeyBatchDelay     = "SNAPSHOT_BATCH_DELAY_SECONDS"
	KeyMaxRetries     = "SNAPSHOT_MAX_RETRIES"
	KeyRequestTimeout = "SNAPSHOT_REQUEST_TIMEOUT_SECONDS"
	KeyWarmup         = "SNAPSHOT_WARMUP"
)

// Defaults applied when a key is absent or empty.
const (
	DefaultBaseURL        = "http://localhost:54321"
	DefaultBatchSize      = 5
	DefaultBatchDelay     = 10
	DefaultMaxRetries     = 3
	DefaultRequestTimeout = 45
	DefaultWarmup         = true
)

// Bound is an inclusive integer range.
type Bound struct {
	Min int
	Max int
}

// Contains reports whether v lies within the bound.
func (b Bound) Contains(v int) bool {
	return v >= b.Min && v <= b.Max
}

// Bounds for the numeric parameters.
var (
	BatchSizeBound      = Bound{Min: 1, Max: 10}
	BatchDelayBound     = Bound{Min: 1, Max: 300}
	MaxRetriesBound     = Bound{Min: 1, Max: 10}
	RequestTimeoutBound = Bound{Min: 10, Max: 300}
)

// RunConfig is the immutable configuration of one run.
// It is passed by value; nothing mutates it after Resolve returns.
type RunConfig struct {
	// BaseURL of the remote batch service (scheme and host, optional path prefix).
	BaseURL string

	// Token is the bearer credential sent with every call.
	Token string

	// BatchSize is the number of items the remote processes per call.
	BatchSize int

	// BatchDelay is the pause between batches, reused as the base retry delay.
	BatchDelay time.Duration

	// MaxRetries is the number of attempts per batch (including the first).
	MaxRetries int

	// RequestTimeout bounds a single network call.
	RequestTimeout time.Duration

	// Warmup enables the best-effort warm-up call before batch 1.
	Warmup bool
}

// String renders the config without the credential.
func (c RunConfig) String() string {
	return fmt.Sprintf("url=%s batch_size=%d delay=%s max_retries=%d timeout=%s warmup=%t",
		c.BaseURL, c.BatchSize, c.BatchDelay, c.MaxRetries, c.RequestTimeout, c.Warmup)
}

// Resolve reads every parameter from src and validates it.
// The first invalid parameter aborts resolution with a *ConfigError.
func Resolve(src Source) (RunConfig, error) {
	var cfg RunConfig
	var err error

	if cfg.BaseURL, err = resolveURL(src); err != nil {
		return RunConfig{}, err
	}
	if cfg.Token, err = resolveToken(src); err != nil {
		return RunConfig{}, err
	}

	if cfg.BatchSize, err = resolveInt(src, KeyBatchSize, DefaultBatchSize, BatchSizeBound); err != nil {
		return RunConfig{}, err
	}

	delay, err := resolveInt(src, KeyBatchDelay, DefaultBatchDelay, BatchDelayBound)
	if err != nil {
		return RunConfig{}, err
	}
	cfg.BatchDelay = time.Duration(delay) * time.Second

	if cfg.MaxRetries, err = resolveInt(src, KeyMaxRetries, DefaultMaxRetries, MaxRetriesBound); err != nil {
		return RunConfig{}, err
	}

	timeout, err := resolveInt(src, KeyRequestTimeout, DefaultRequestTimeout, RequestTimeoutBound)
	if err != nil {
		return RunConfig{}, err
	}
	cfg.RequestTimeout = time.Duration(timeout) * time.Second

	if cfg.Warmup, err = resolveBool(src, KeyWarmup, DefaultWarmup); err != nil {
		return RunConfig{}, err
	}

	return cfg, nil
}

func lookup(src Source, key string) (string, bool) {
	raw, ok := src.Lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func resolveURL(src Source) (string, error) {
	raw, ok := lookup(src, KeyBaseURL)
	if !ok {
		return DefaultBaseURL, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &ConfigError{Key: KeyBaseURL, Value: raw, Reason: "malformed URL", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ConfigError{Key: KeyBaseURL, Value: raw, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return "", &ConfigError{Key: KeyBaseURL, Value: raw, Reason: "missing host"}
	}

	return strings.TrimRight(raw, "/"), nil
}

func resolveToken(src Source) (string, error) {
	raw, ok := lookup(src, KeyToken)
	if !ok {
		return "", &ConfigError{Key: KeyToken, Reason: "required credential is missing or blank"}
	}
	return raw, nil
}

func resolveInt(src Source, key string, def int, bound Bound) (int, error) {
	raw, ok := lookup(src, key)
	if !ok {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Key: key, Value: raw, Reason: "not an integer", Err: err}
	}
	if !bound.Contains(v) {
		return 0, &ConfigError{
			Key:    key,
			Value:  raw,
			Reason: fmt.Sprintf("must be between %d and %d", bound.Min, bound.Max),
		}
	}

	return v, nil
}

func resolveBool(src Source, key string, def bool) (bool, error) {
	raw, ok := lookup(src, key)
	if !ok {
		return def, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ConfigError{Key: key, Value: raw, Reason: "not a boolean", Err: err}
	}
	return v, nil
}
