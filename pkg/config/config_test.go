package config

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func validSource() MapSource {
	return MapSource{
		KeyBaseURL:        "https://example.supabase.co",
		KeyToken:          "secret-token",
		KeyBatchSize:      "7",
		KeyBatchDelay:     "20",
		KeyMaxRetries:     "4",
		KeyRequestTimeout: "60",
		KeyWarmup:         "false",
	}
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(MapSource{KeyToken: "secret-token"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", cfg.BatchSize)
	}
	if cfg.BatchDelay != 10*time.Second {
		t.Errorf("BatchDelay = %v, want 10s", cfg.BatchDelay)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("RequestTimeout = %v, want 45s", cfg.RequestTimeout)
	}
	if !cfg.Warmup {
		t.Error("Warmup = false, want true")
	}
}

func TestResolve_ExplicitValues(t *testing.T) {
	cfg, err := Resolve(validSource())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := RunConfig{
		BaseURL:        "https://example.supabase.co",
		Token:          "secret-token",
		BatchSize:      7,
		BatchDelay:     20 * time.Second,
		MaxRetries:     4,
		RequestTimeout: 60 * time.Second,
		Warmup:         false,
	}
	if cfg != want {
		t.Errorf("Resolve() = %+v, want %+v", cfg, want)
	}
}

func TestResolve_BoundsAccepted(t *testing.T) {
	tests := []struct {
		key   string
		bound Bound
	}{
		{KeyBatchSize, BatchSizeBound},
		{KeyBatchDelay, BatchDelayBound},
		{KeyMaxRetries, MaxRetriesBound},
		{KeyRequestTimeout, RequestTimeoutBound},
	}

	for _, tt := range tests {
		for _, v := range []int{tt.bound.Min, tt.bound.Max} {
			src := validSource()
			src[tt.key] = strconv.Itoa(v)

			if _, err := Resolve(src); err != nil {
				t.Errorf("Resolve(%s=%d) error = %v, want nil", tt.key, v, err)
			}
		}
	}
}

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"batch size zero", KeyBatchSize, "0"},
		{"batch size too large", KeyBatchSize, "11"},
		{"batch size not integer", KeyBatchSize, "five"},
		{"batch size float", KeyBatchSize, "2.5"},
		{"delay zero", KeyBatchDelay, "0"},
		{"delay too large", KeyBatchDelay, "301"},
		{"retries zero", KeyMaxRetries, "0"},
		{"retries too large", KeyMaxRetries, "11"},
		{"timeout too small", KeyRequestTimeout, "9"},
		{"timeout too large", KeyRequestTimeout, "301"},
		{"timeout negative", KeyRequestTimeout, "-45"},
		{"warmup not boolean", KeyWarmup, "maybe"},
		{"url without scheme", KeyBaseURL, "localhost:54321"},
		{"url bad scheme", KeyBaseURL, "ftp://example.com"},
		{"url without host", KeyBaseURL, "http://"},
		{"url malformed", KeyBaseURL, "http://[::1"},
		{"token blank", KeyToken, "   "},
		{"token empty", KeyToken, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := validSource()
			src[tt.key] = tt.value

			_, err := Resolve(src)
			if err == nil {
				t.Fatal("Resolve() error = nil, want ConfigError")
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Resolve() error = %T, want *ConfigError", err)
			}
			if cfgErr.Key != tt.key {
				t.Errorf("ConfigError.Key = %q, want %q", cfgErr.Key, tt.key)
			}
		})
	}
}

func TestResolve_MissingToken(t *testing.T) {
	src := validSource()
	delete(src, KeyToken)

	_, err := Resolve(src)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Key != KeyToken {
		t.Fatalf("Resolve() error = %v, want ConfigError for %s", err, KeyToken)
	}
}

func TestResolve_TrimsTrailingSlash(t *testing.T) {
	src := validSource()
	src[KeyBaseURL] = "http://localhost:54321/"

	cfg, err := Resolve(src)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.BaseURL != "http://localhost:54321" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://localhost:54321")
	}
}

func TestRunConfig_StringOmitsToken(t *testing.T) {
	cfg, err := Resolve(validSource())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if strings.Contains(cfg.String(), "secret-token") {
		t.Errorf("String() = %q, must not contain the token", cfg.String())
	}
}

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name:     "with value",
			err:      &ConfigError{Key: KeyBatchSize, Value: "11", Reason: "must be between 1 and 10"},
			expected: `config SNAPSHOT_BATCH_SIZE="11": must be between 1 and 10`,
		},
		{
			name:     "without value",
			err:      &ConfigError{Key: KeyToken, Reason: "required credential is missing or blank"},
			expected: "config SNAPSHOT_API_TOKEN: required credential is missing or blank",
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

func TestEnvSource(t *testing.T) {
	t.Setenv(KeyToken, "env-token")
	t.Setenv(KeyBatchSize, "3")

	cfg, err := Resolve(EnvSource{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cfg.Token)
	}
	if cfg.BatchSize != 3 {
		t.Errorf("BatchSize = %d, want 3", cfg.BatchSize)
	}
}

func TestViperSource(t *testing.T) {
	t.Setenv(KeyMaxRetries, "6")

	v := viper.New()
	v.Set(KeyToken, "viper-token")
	v.Set(KeyBatchDelay, 2)

	cfg, err := Resolve(NewViperSource(v))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Token != "viper-token" {
		t.Errorf("Token = %q, want viper-token", cfg.Token)
	}
	if cfg.BatchDelay != 2*time.Second {
		t.Errorf("BatchDelay = %v, want 2s", cfg.BatchDelay)
	}
	if cfg.MaxRetries != 6 {
		t.Errorf("MaxRetries = %d, want 6 (from environment)", cfg.MaxRetries)
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want default %d", cfg.BatchSize, DefaultBatchSize)
	}
}

