package config

import (
	"os"

	"github.com/spf13/viper"
)

// Source is an external key/value source of configuration.
type Source interface {
	// Lookup returns the raw value for key and whether it is set.
	Lookup(key string) (string, bool)
}

// EnvSource reads from the process environment.
type EnvSource struct{}

// Lookup implements Source.
func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource is a fixed in-memory source.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ViperSource reads through a viper instance, which merges a config file,
// bound flags and the environment.
type ViperSource struct {
	v *viper.Viper
}

// NewViperSource wraps v. Environment lookups are enabled on v.
func NewViperSource(v *viper.Viper) *ViperSource {
	v.AutomaticEnv()
	return &ViperSource{v: v}
}

// Lookup implements Source.
func (s *ViperSource) Lookup(key string) (string, bool) {
	if !s.v.IsSet(key) {
		return "", false
	}
	return s.v.GetString(key), true
}
