package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
// Validation is eager: a run must fail here before any network call is made.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateSource()...)
	errors = append(errors, c.validateWarehouse()...)
	errors = append(errors, c.validateCheckpoint()...)
	errors = append(errors, c.validateProcessing()...)
	errors = append(errors, c.validateRetry()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateSource() ValidationErrors {
	var errors ValidationErrors

	raw := strings.TrimSpace(c.Source.WorkspaceURL)
	if raw == "" {
		errors = append(errors, ValidationError{
			Field:   "source.workspace_url",
			Message: "workspace URL is required",
		})
	} else {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, ValidationError{
				Field:   "source.workspace_url",
				Message: fmt.Sprintf("%q is not a valid http(s) URL", raw),
			})
		}
	}

	if strings.TrimSpace(c.Source.AccessToken) == "" {
		errors = append(errors, ValidationError{
			Field:   "source.access_token",
			Message: "access token is required",
		})
	}

	if c.Source.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "source.timeout_seconds",
			Message: "timeout must not be negative",
		})
	}
	if c.Source.PageSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "source.page_size",
			Message: "page size must not be negative",
		})
	}

	return errors
}

func (c *Config) validateWarehouse() ValidationErrors {
	var errors ValidationErrors

	if c.Warehouse.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "warehouse.host",
			Message: "host is required",
		})
	}
	if c.Warehouse.Port <= 0 || c.Warehouse.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "warehouse.port",
			Message: fmt.Sprintf("port %d is out of range (1-65535)", c.Warehouse.Port),
		})
	}
	if c.Warehouse.User == "" {
		errors = append(errors, ValidationError{
			Field:   "warehouse.user",
			Message: "user is required",
		})
	}
	if c.Warehouse.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "warehouse.database",
			Message: "database is required",
		})
	}
	switch c.Warehouse.TLS {
	case "", "disable", "preferred", "required":
	default:
		errors = append(errors, ValidationError{
			Field:   "warehouse.tls",
			Message: fmt.Sprintf("invalid TLS mode %q (disable, preferred, required)", c.Warehouse.TLS),
		})
	}

	return errors
}

func (c *Config) validateCheckpoint() ValidationErrors {
	if strings.TrimSpace(c.Checkpoint.Path) == "" {
		return ValidationErrors{{
			Field:   "checkpoint.path",
			Message: "checkpoint path is required",
		}}
	}
	return nil
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.batch_size",
			Message: "batch size must be positive",
		})
	}
	if c.Processing.BatchSize > 5000 {
		errors = append(errors, ValidationError{
			Field:   "processing.batch_size",
			Message: "batch size must not exceed 5000 (bounds merge transaction size)",
		})
	}
	if c.Processing.Workers <= 0 || c.Processing.Workers > 64 {
		errors = append(errors, ValidationError{
			Field:   "processing.workers",
			Message: fmt.Sprintf("workers %d is out of range (1-64)", c.Processing.Workers),
		})
	}
	if c.Processing.SleepSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.sleep_seconds",
			Message: "sleep seconds must not be negative",
		})
	}

	return errors
}

func (c *Config) validateRetry() ValidationErrors {
	var errors ValidationErrors

	if c.Retry.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.max_attempts",
			Message: "at least one attempt is required",
		})
	}
	if c.Retry.BaseDelaySecs < 0 || c.Retry.MaxDelaySecs < 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.base_delay_seconds",
			Message: "delays must not be negative",
		})
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.jitter_factor",
			Message: "jitter factor must be in [0, 1]",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level %q (debug, info, warn, error)", c.Logging.Level),
		})
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format %q (json, text)", c.Logging.Format),
		})
	}

	return errors
}
