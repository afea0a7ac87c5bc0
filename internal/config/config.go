// Package config holds the viper-backed configuration for the mandelgrid
// commands: defaults, file/env loading, and validation.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config is the complete mandelgrid configuration.
type Config struct {
	Compute ComputeConfig `mapstructure:"compute"`
	Zoom    ZoomConfig    `mapstructure:"zoom"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ComputeConfig controls the grid computation.
type ComputeConfig struct {
	// Resolution is the grid edge length; the grid has Resolution² points.
	Resolution int `mapstructure:"resolution"`
	// Iterations is the pass-1 iteration budget; later passes double it.
	Iterations int `mapstructure:"iterations"`
	// Radius is the escape radius as a base-32 literal.
	Radius string `mapstructure:"radius"`
	// Workers is the number of engine processes to spawn.
	Workers int `mapstructure:"workers"`
	// Output is the CSV path the finished grid is written to.
	Output string `mapstructure:"output"`
	// Progress enables the interactive progress display.
	Progress bool `mapstructure:"progress"`
}

// ZoomConfig controls the region selector.
type ZoomConfig struct {
	// Magnification is the zoom factor applied to the window (must be > 1).
	Magnification float64 `mapstructure:"magnification"`
	// Seed seeds the random draw from the top tier; 0 means time-seeded.
	Seed int64 `mapstructure:"seed"`
}

// EngineConfig controls how worker peers are launched.
type EngineConfig struct {
	// Command is the engine binary to spawn. Empty means re-exec the
	// current binary with the engine subcommand.
	Command string `mapstructure:"command"`
}

// LoggingConfig controls debug logging behavior.
type LoggingConfig struct {
	// Enabled controls whether logging is emitted at all.
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// File is the log destination; empty logs to stderr.
	File string `mapstructure:"file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Compute: ComputeConfig{
			Resolution: 128,
			Iterations: 100,
			Radius:     "2",
			Workers:    runtime.NumCPU(),
			Output:     "output.csv",
			Progress:   false,
		},
		Zoom: ZoomConfig{
			Magnification: 2.0,
			Seed:          0,
		},
		Engine: EngineConfig{
			Command: "",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			File:    "",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("compute.resolution", defaults.Compute.Resolution)
	viper.SetDefault("compute.iterations", defaults.Compute.Iterations)
	viper.SetDefault("compute.radius", defaults.Compute.Radius)
	viper.SetDefault("compute.workers", defaults.Compute.Workers)
	viper.SetDefault("compute.output", defaults.Compute.Output)
	viper.SetDefault("compute.progress", defaults.Compute.Progress)

	viper.SetDefault("zoom.magnification", defaults.Zoom.Magnification)
	viper.SetDefault("zoom.seed", defaults.Zoom.Seed)

	viper.SetDefault("engine.command", defaults.Engine.Command)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
}

// Load reads the configuration from viper into a Config struct and
// validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// loading fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mandelgrid")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mandelgrid"
	}
	return filepath.Join(home, ".config", "mandelgrid")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
