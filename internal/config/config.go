// Package config provides configuration structures and loading for metasync.
package config

import (
	"strings"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Source       SourceConfig       `yaml:"source" mapstructure:"source"`
	Warehouse    WarehouseConfig    `yaml:"warehouse" mapstructure:"warehouse"`
	Checkpoint   CheckpointConfig   `yaml:"checkpoint" mapstructure:"checkpoint"`
	Processing   ProcessingConfig   `yaml:"processing" mapstructure:"processing"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// SourceConfig represents the source data-catalog REST endpoint.
type SourceConfig struct {
	WorkspaceURL   string `yaml:"workspace_url" mapstructure:"workspace_url"`
	AccessToken    string `yaml:"access_token" mapstructure:"access_token"`
	CatalogFilter  string `yaml:"catalog_filter" mapstructure:"catalog_filter"` // comma-separated allow-list, empty = all
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	PageSize       int    `yaml:"page_size" mapstructure:"page_size"`
}

// AllowList parses the catalog filter into trimmed, non-empty names.
// An empty filter returns nil, meaning every catalog is synced.
func (s *SourceConfig) AllowList() []string {
	if strings.TrimSpace(s.CatalogFilter) == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(s.CatalogFilter, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Timeout returns the per-request HTTP timeout.
func (s *SourceConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// WarehouseConfig represents the destination MySQL warehouse connection.
type WarehouseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// CheckpointConfig represents sync checkpoint persistence.
type CheckpointConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ProcessingConfig represents batch and concurrency settings.
type ProcessingConfig struct {
	BatchSize    int     `yaml:"batch_size" mapstructure:"batch_size"`       // rows per warehouse merge
	Workers      int     `yaml:"workers" mapstructure:"workers"`             // table-detail extraction workers per catalog
	SleepSeconds float64 `yaml:"sleep_seconds" mapstructure:"sleep_seconds"` // pause between catalogs
}

// RetryConfig represents the transient-failure retry policy.
type RetryConfig struct {
	MaxAttempts   int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelaySecs float64 `yaml:"base_delay_seconds" mapstructure:"base_delay_seconds"`
	MaxDelaySecs  float64 `yaml:"max_delay_seconds" mapstructure:"max_delay_seconds"`
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	JitterFactor  float64 `yaml:"jitter_factor" mapstructure:"jitter_factor"`
}

// VerificationConfig represents post-commit verification settings.
type VerificationConfig struct {
	SkipVerification bool `yaml:"skip_verification" mapstructure:"skip_verification"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			TimeoutSeconds: 30,
			PageSize:       100,
		},
		Warehouse: WarehouseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Checkpoint: CheckpointConfig{
			Path: "metasync-checkpoint.json",
		},
		Processing: ProcessingConfig{
			BatchSize:    500,
			Workers:      4,
			SleepSeconds: 0,
		},
		Retry: RetryConfig{
			MaxAttempts:   4,
			BaseDelaySecs: 1,
			MaxDelaySecs:  30,
			BackoffFactor: 2.0,
			JitterFactor:  0.2,
		},
		Verification: VerificationConfig{
			SkipVerification: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, batchSize, workers int, skipVerify bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if batchSize > 0 {
		c.Processing.BatchSize = batchSize
	}
	if workers > 0 {
		c.Processing.Workers = workers
	}
	if skipVerify {
		c.Verification.SkipVerification = true
	}
}
