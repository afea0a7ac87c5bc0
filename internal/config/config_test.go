package config

import (
	"runtime"
	"testing"

	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("default config invalid: %v", ValidationErrors(errs))
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Compute.Resolution != 128 {
		t.Errorf("Resolution = %d, want 128", cfg.Compute.Resolution)
	}
	if cfg.Compute.Iterations != 100 {
		t.Errorf("Iterations = %d, want 100", cfg.Compute.Iterations)
	}
	if cfg.Compute.Radius != "2" {
		t.Errorf("Radius = %q, want \"2\"", cfg.Compute.Radius)
	}
	if cfg.Compute.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Compute.Workers, runtime.NumCPU())
	}
	if cfg.Zoom.Magnification != 2.0 {
		t.Errorf("Magnification = %v, want 2.0", cfg.Zoom.Magnification)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want \"info\"", cfg.Logging.Level)
	}
}

func TestLoadUsesDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Compute.Resolution != want.Compute.Resolution {
		t.Errorf("Resolution = %d, want %d", cfg.Compute.Resolution, want.Compute.Resolution)
	}
	if cfg.Compute.Output != want.Compute.Output {
		t.Errorf("Output = %q, want %q", cfg.Compute.Output, want.Compute.Output)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	resetViper(t)
	viper.Set("compute.resolution", 32)
	viper.Set("compute.radius", "4")
	viper.Set("zoom.magnification", 3.5)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Compute.Resolution != 32 {
		t.Errorf("Resolution = %d, want 32", cfg.Compute.Resolution)
	}
	if cfg.Compute.Radius != "4" {
		t.Errorf("Radius = %q, want \"4\"", cfg.Compute.Radius)
	}
	if cfg.Zoom.Magnification != 3.5 {
		t.Errorf("Magnification = %v, want 3.5", cfg.Zoom.Magnification)
	}
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	resetViper(t)
	viper.Set("compute.resolution", 0)

	if _, err := Load(); err == nil {
		t.Fatal("expected Load to fail on resolution 0")
	}
}

func TestGetFallsBackToDefaults(t *testing.T) {
	resetViper(t)
	viper.Set("compute.iterations", -5)

	cfg := Get()
	if cfg.Compute.Iterations != Default().Compute.Iterations {
		t.Errorf("Get did not fall back to defaults: %+v", cfg.Compute)
	}
}
