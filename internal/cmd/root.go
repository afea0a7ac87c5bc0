package cmd

import (
	"strings"

	"github.com/Iron-Ham/mandelgrid/internal/config"
	"github.com/Iron-Ham/mandelgrid/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mandelgrid",
	Short: "Arbitrary-precision Mandelbrot grid engine",
	Long: `Mandelgrid computes escape-time data for a grid of points in the
complex plane at arbitrary precision, distributing the work across a pool
of engine processes, and suggests where to zoom next.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/mandelgrid/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/mandelgrid")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("MANDELGRID")
	// Replace dots with underscores for nested keys in env vars
	// e.g., MANDELGRID_COMPUTE_RESOLUTION for compute.resolution
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger builds the process logger from the loaded configuration.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.Nop(), nil
	}
	return logging.New(cfg.Logging.File, cfg.Logging.Level)
}
