package cmd

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/mandelgrid/internal/config"
	"github.com/Iron-Ham/mandelgrid/internal/export"
	"github.com/Iron-Ham/mandelgrid/internal/grid"
	"github.com/Iron-Ham/mandelgrid/internal/logging"
	"github.com/Iron-Ham/mandelgrid/internal/tui"
	"github.com/Iron-Ham/mandelgrid/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var computeCmd = &cobra.Command{
	Use:   "compute <min_ca> <min_cb> <max_ca> <max_cb>",
	Short: "Compute escape-time data for a grid over the given window",
	Long: `Compute samples a resolution×resolution grid of c values over the
window given by the four base-32 corner literals, iterates every point
adaptively until it escapes or the safety cap is reached, and writes the
finished grid as CSV.

Example:
  mandelgrid compute -- -2 -2 2 2 -r 256 -i 100 -o mandel.csv`,
	Args: cobra.ExactArgs(4),
	RunE: runCompute,
}

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().IntP("resolution", "r", 0, "grid edge length (points per axis)")
	computeCmd.Flags().IntP("iterations", "i", 0, "initial per-pass iteration budget")
	computeCmd.Flags().String("radius", "", "escape radius as a base-32 literal")
	computeCmd.Flags().IntP("workers", "w", 0, "number of engine processes")
	computeCmd.Flags().StringP("output", "o", "", "output CSV path")
	computeCmd.Flags().Bool("progress", false, "show an interactive progress display")

	_ = viper.BindPFlag("compute.resolution", computeCmd.Flags().Lookup("resolution"))
	_ = viper.BindPFlag("compute.iterations", computeCmd.Flags().Lookup("iterations"))
	_ = viper.BindPFlag("compute.radius", computeCmd.Flags().Lookup("radius"))
	_ = viper.BindPFlag("compute.workers", computeCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("compute.output", computeCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("compute.progress", computeCmd.Flags().Lookup("progress"))
}

func runCompute(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer log.Close()

	bounds, err := grid.ParseBounds(args[0], args[1], args[2], args[3])
	if err != nil {
		return err
	}
	g, err := grid.Generate(bounds, cfg.Compute.Resolution)
	if err != nil {
		return err
	}
	log.Info("grid generated",
		"resolution", g.Res, "precision", g.Precision, "points", len(g.Points))

	spawn, err := engineSpawner(cmd, cfg, log)
	if err != nil {
		return err
	}
	pool, err := worker.NewPool(cfg.Compute.Workers, spawn, log)
	if err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	defer pool.Close()

	if cfg.Compute.Progress {
		err = tui.Run(len(g.Points), func(observe func(grid.Event)) error {
			orch, err := grid.New(pool, cfg.Compute.Radius, cfg.Compute.Iterations, log, grid.WithObserver(observe))
			if err != nil {
				return err
			}
			return orch.Run(g)
		})
	} else {
		var orch *grid.Orchestrator
		orch, err = grid.New(pool, cfg.Compute.Radius, cfg.Compute.Iterations, log)
		if err == nil {
			err = orch.Run(g)
		}
	}
	if err != nil {
		return fmt.Errorf("computation failed: %w", err)
	}

	out, err := os.Create(cfg.Compute.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()
	if err := export.Write(out, g); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d points to %s\n", len(g.Points), cfg.Compute.Output)
	return nil
}

// engineSpawner picks the peer launch strategy: a configured engine binary,
// or re-exec of this binary with the engine subcommand.
func engineSpawner(cmd *cobra.Command, cfg *config.Config, log *logging.Logger) (worker.SpawnFunc, error) {
	ctx := cmd.Context()
	if cfg.Engine.Command != "" {
		return worker.ProcessSpawner(ctx, log, cfg.Engine.Command), nil
	}
	return worker.SelfSpawner(ctx, log, "engine")
}
