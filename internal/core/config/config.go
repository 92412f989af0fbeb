package config

import (
	"fmt"
	"time"

	"github.com/vietddude/forecaster/internal/infra/storage/postgres"
	"github.com/vietddude/forecaster/internal/infra/store"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig     `yaml:"server"`
	Redis     store.Config     `yaml:"redis"`
	Database  postgres.Config  `yaml:"database"`
	Logging   LoggingConfig    `yaml:"logging"`
	Routing   RoutingConfig    `yaml:"routing"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RoutingConfig holds the dispatcher and health-state settings.
type RoutingConfig struct {
	Scope           string   `yaml:"scope"`            // "global" or "per-caller"
	AssignmentTTL   Duration `yaml:"assignment_ttl"`   // sticky routing lifetime
	RetryInterval   Duration `yaml:"retry_interval"`   // failure cooldown before re-probe
	FailureMarkTTL  Duration `yaml:"failure_mark_ttl"` // safety net on stuck failure state
	MetricsWindow   Duration `yaml:"metrics_window"`   // counter reset window
	DefaultProvider string   `yaml:"default_provider"` // used when nothing is eligible
}

// ProviderConfig holds settings for one forecast provider.
type ProviderConfig struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"` // "scraping", "external", "grpc"
	URL         string   `yaml:"url"`
	APIKey      string   `yaml:"api_key"`
	CostPerCall float64  `yaml:"cost_per_call"`
	Timeout     Duration `yaml:"timeout"`
}

// Duration parses "60s"-style strings from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
