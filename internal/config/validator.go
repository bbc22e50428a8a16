package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "batch.workers")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLayouts returns the supported pair directory layouts
func ValidLayouts() []string {
	return []string{"pool", "clone/pool"}
}

// ValidModes returns the sequencing platform tags the pipeline accepts
func ValidModes() []string {
	return []string{"MS", "PB"}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateBatch()...)
	errors = append(errors, c.validatePipeline()...)
	errors = append(errors, c.validateICE()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateBatch() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLayouts(), c.Batch.Layout) {
		errors = append(errors, ValidationError{
			Field:   "batch.layout",
			Value:   c.Batch.Layout,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLayouts(), ", ")),
		})
	}
	if c.Batch.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "batch.workers",
			Value:   c.Batch.Workers,
			Message: "must be at least 1",
		})
	}
	if c.Batch.Root == "" {
		errors = append(errors, ValidationError{
			Field:   "batch.root",
			Value:   c.Batch.Root,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validatePipeline() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Pipeline.Program) == "" {
		errors = append(errors, ValidationError{
			Field:   "pipeline.program",
			Value:   c.Pipeline.Program,
			Message: "must not be empty",
		})
	}
	if !slices.Contains(ValidModes(), c.Pipeline.Mode) {
		errors = append(errors, ValidationError{
			Field:   "pipeline.mode",
			Value:   c.Pipeline.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidModes(), ", ")),
		})
	}
	if c.Pipeline.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.timeout",
			Value:   c.Pipeline.Timeout,
			Message: "must be non-negative (0 disables the timeout)",
		})
	}
	if c.Pipeline.MaxOutputBytes < 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_output_bytes",
			Value:   c.Pipeline.MaxOutputBytes,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateICE() []ValidationError {
	var errors []ValidationError

	if c.ICE.Host != "" {
		u, err := url.Parse(c.ICE.Host)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "ice.host",
				Value:   c.ICE.Host,
				Message: "must be an absolute http(s) URL",
			})
		}
	}
	if c.ICE.Parallel < 1 {
		errors = append(errors, ValidationError{
			Field:   "ice.parallel",
			Value:   c.ICE.Parallel,
			Message: "must be at least 1",
		})
	}
	if c.ICE.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "ice.timeout",
			Value:   c.ICE.Timeout,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
