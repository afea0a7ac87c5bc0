package cmd

import (
	"os"

	"github.com/Iron-Ham/mandelgrid/internal/protocol"
	"github.com/spf13/cobra"
)

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Run the iteration engine over stdin/stdout",
	Long: `Engine speaks the line protocol on stdin/stdout until EXIT or end
of input. This is the peer the compute command spawns for each worker; it
can also be driven by hand for debugging:

  echo "CAL 64 0 0 -3 0 10 2" | mandelgrid engine`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return protocol.Run(os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(engineCmd)
}
