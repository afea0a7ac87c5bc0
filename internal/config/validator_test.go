package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return Default()
}

func findError(errs []ValidationError, field string) *ValidationError {
	for i := range errs {
		if errs[i].Field == field {
			return &errs[i]
		}
	}
	return nil
}

func TestValidateCompute(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero resolution", func(c *Config) { c.Compute.Resolution = 0 }, "compute.resolution"},
		{"negative resolution", func(c *Config) { c.Compute.Resolution = -4 }, "compute.resolution"},
		{"huge resolution", func(c *Config) { c.Compute.Resolution = maxResolution + 1 }, "compute.resolution"},
		{"zero iterations", func(c *Config) { c.Compute.Iterations = 0 }, "compute.iterations"},
		{"zero workers", func(c *Config) { c.Compute.Workers = 0 }, "compute.workers"},
		{"empty output", func(c *Config) { c.Compute.Output = "" }, "compute.output"},
		{"garbage radius", func(c *Config) { c.Compute.Radius = "not-a-number" }, "compute.radius"},
		{"negative radius", func(c *Config) { c.Compute.Radius = "-2" }, "compute.radius"},
		{"non-finite radius", func(c *Config) { c.Compute.Radius = "@NaN@" }, "compute.radius"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if findError(errs, tt.field) == nil {
				t.Errorf("expected a %s error, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateComputeAcceptsFractionalRadius(t *testing.T) {
	cfg := validConfig()
	cfg.Compute.Radius = "2.8" // 2.25 in base 32
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("fractional radius rejected: %v", errs)
	}
}

func TestValidateZoom(t *testing.T) {
	for _, mag := range []float64{1, 0.99, 0, -3} {
		cfg := validConfig()
		cfg.Zoom.Magnification = mag
		if findError(cfg.Validate(), "zoom.magnification") == nil {
			t.Errorf("magnification %v should be rejected", mag)
		}
	}
}

func TestValidateLogging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "loud"
	err := findError(cfg.Validate(), "logging.level")
	if err == nil {
		t.Fatal("expected a logging.level error")
	}
	if !strings.Contains(err.Message, "debug") {
		t.Errorf("message should list valid levels: %q", err.Message)
	}
}

func TestValidationErrorsFormatting(t *testing.T) {
	if got := (ValidationErrors{}).Error(); got != "" {
		t.Errorf("empty errors = %q, want empty string", got)
	}

	one := ValidationErrors{{Field: "compute.workers", Value: 0, Message: "must be at least 1"}}
	if got := one.Error(); !strings.Contains(got, "compute.workers") {
		t.Errorf("single error = %q", got)
	}

	two := ValidationErrors{
		{Field: "compute.workers", Value: 0, Message: "must be at least 1"},
		{Field: "zoom.magnification", Value: 1.0, Message: "must be greater than 1"},
	}
	got := two.Error()
	if !strings.Contains(got, "2 validation errors") {
		t.Errorf("multi error header missing: %q", got)
	}
	if !strings.Contains(got, "compute.workers") || !strings.Contains(got, "zoom.magnification") {
		t.Errorf("multi error body missing fields: %q", got)
	}
}
