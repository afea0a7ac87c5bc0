package cmd

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/Iron-Ham/mandelgrid/internal/numeric"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <10TO32|32TO10> <precision> <number>",
	Short: "Convert a number between base 10 and base 32",
	Long: `Convert translates a single number between decimal notation and the
base-32 literal form the engine speaks. For 10TO32 the precision is in
bits; for 32TO10 it is the number of decimal places to print.

Examples:
  mandelgrid convert 10TO32 64 -0.5
  mandelgrid convert 32TO10 64 -0.g
  mandelgrid convert 10TO32 256 1e-10`,
	Args: cobra.ExactArgs(3),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	precision, err := strconv.Atoi(args[1])
	if err != nil || precision < 1 {
		return fmt.Errorf("invalid precision %q: must be a positive integer", args[1])
	}

	var out string
	switch args[0] {
	case "10TO32":
		out, err = decimalToBase32(args[2], uint(precision))
	case "32TO10":
		out, err = base32ToDecimal(args[2], precision)
	default:
		return fmt.Errorf("unknown conversion %q: want 10TO32 or 32TO10", args[0])
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func decimalToBase32(text string, prec uint) (string, error) {
	v, _, err := big.ParseFloat(text, 10, prec, big.ToNearestEven)
	if err != nil {
		return "", fmt.Errorf("invalid base-10 number %q: %w", text, err)
	}
	return numeric.Format(v), nil
}

func base32ToDecimal(text string, places int) (string, error) {
	// 4 bits per decimal digit overshoots log2(10); the slack keeps the
	// printed digits exact.
	bits := uint(places*4 + 64)
	v, err := numeric.Parse(text, bits)
	if err != nil {
		return "", err
	}
	if v.Sign() == 0 {
		return "0", nil
	}
	out := v.Text('f', places)
	if strings.Contains(out, ".") {
		out = strings.TrimRight(out, "0")
		out = strings.TrimRight(out, ".")
	}
	return out, nil
}
