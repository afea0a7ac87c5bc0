package config

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/mandelgrid/internal/logging"
	"github.com/Iron-Ham/mandelgrid/internal/numeric"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "compute.resolution")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// maxResolution bounds the grid edge; beyond this the point count (and the
// CSV) stops being practical.
const maxResolution = 16384

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCompute()...)
	errors = append(errors, c.validateZoom()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateCompute validates the ComputeConfig.
func (c *Config) validateCompute() []ValidationError {
	var errors []ValidationError

	if c.Compute.Resolution < 1 {
		errors = append(errors, ValidationError{
			Field:   "compute.resolution",
			Value:   c.Compute.Resolution,
			Message: "must be at least 1",
		})
	}
	if c.Compute.Resolution > maxResolution {
		errors = append(errors, ValidationError{
			Field:   "compute.resolution",
			Value:   c.Compute.Resolution,
			Message: fmt.Sprintf("exceeds maximum of %d", maxResolution),
		})
	}
	if c.Compute.Iterations < 1 {
		errors = append(errors, ValidationError{
			Field:   "compute.iterations",
			Value:   c.Compute.Iterations,
			Message: "must be at least 1",
		})
	}
	if c.Compute.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "compute.workers",
			Value:   c.Compute.Workers,
			Message: "must be at least 1",
		})
	}
	if c.Compute.Output == "" {
		errors = append(errors, ValidationError{
			Field:   "compute.output",
			Value:   c.Compute.Output,
			Message: "must not be empty",
		})
	}

	if r, err := numeric.Parse(c.Compute.Radius, 64); err != nil {
		errors = append(errors, ValidationError{
			Field:   "compute.radius",
			Value:   c.Compute.Radius,
			Message: "must be a base-32 numeric literal",
		})
	} else if r.Sign() < 0 {
		errors = append(errors, ValidationError{
			Field:   "compute.radius",
			Value:   c.Compute.Radius,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateZoom validates the ZoomConfig.
func (c *Config) validateZoom() []ValidationError {
	var errors []ValidationError

	if c.Zoom.Magnification <= 1 {
		errors = append(errors, ValidationError{
			Field:   "zoom.magnification",
			Value:   c.Zoom.Magnification,
			Message: "must be greater than 1",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig.
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	valid := false
	for _, level := range logging.ValidLevels() {
		if strings.EqualFold(c.Logging.Level, level) {
			valid = true
			break
		}
	}
	if !valid {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(logging.ValidLevels(), ", ")),
		})
	}

	return errors
}
