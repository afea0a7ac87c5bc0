package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/Iron-Ham/mandelgrid/internal/config"
	"github.com/Iron-Ham/mandelgrid/internal/export"
	"github.com/Iron-Ham/mandelgrid/internal/grid"
	"github.com/Iron-Ham/mandelgrid/internal/region"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var zoomCmd = &cobra.Command{
	Use:   "zoom <min_ca> <min_cb> <max_ca> <max_cb> <csv> <magnification>",
	Short: "Suggest the next zoom window from a finished grid",
	Long: `Zoom reads the CSV produced by compute, scores its boundary points
by iteration depth and contrast against their neighbors, draws one of the
top 1% at random, and prints the new window: four corner literals and the
new iteration budget on one line.

Example:
  mandelgrid zoom -- -2 -2 2 2 mandel.csv 3.0`,
	Args: cobra.ExactArgs(6),
	RunE: runZoom,
}

func init() {
	rootCmd.AddCommand(zoomCmd)

	zoomCmd.Flags().Int64("seed", 0, "seed for the random draw (time-seeded when unset)")
	_ = viper.BindPFlag("zoom.seed", zoomCmd.Flags().Lookup("seed"))
}

func runZoom(cmd *cobra.Command, args []string) error {
	mag, err := strconv.ParseFloat(args[5], 64)
	if err != nil {
		return fmt.Errorf("invalid magnification %q: %w", args[5], err)
	}
	viper.Set("zoom.magnification", mag)

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

	f, err := os.Open(args[4])
	if err != nil {
		return fmt.Errorf("failed to open results: %w", err)
	}
	defer f.Close()
	g, err := export.Read(f)
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}

	seed := resolveSeed(cmd.Flags().Changed("seed"), cfg.Zoom.Seed)
	s, err := region.Suggest(g, bounds, cfg.Zoom.Magnification, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}
	log.Info("zoom window chosen",
		"x", s.Chosen.X, "y", s.Chosen.Y,
		"iterations", s.Chosen.Iterations, "budget", s.Budget)

	fmt.Fprintln(cmd.OutOrStdout(), s.Line())
	return nil
}

// resolveSeed picks the seed for the random draw. A seed given explicitly on
// the command line is always honored, zero included; an unset zero seed
// falls back to the clock.
func resolveSeed(explicit bool, seed int64) int64 {
	if !explicit && seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}
