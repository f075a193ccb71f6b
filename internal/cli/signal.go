package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mstlab/sigfetch/internal/shot"
)

// parseShotArg parses and validates a shot-number argument.
func parseShotArg(arg string) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("shot number %q is not an integer", arg)
	}
	if !shot.Valid(n) {
		return 0, fmt.Errorf("%d is not a valid shot number", n)
	}
	return n, nil
}

// newSignalCmd creates the signal command.
func newSignalCmd(a *app) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "signal <shot> <name>",
		Short: "Fetch a signal's axis and value arrays",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shotNum, err := parseShotArg(args[0])
			if err != nil {
				return err
			}

			q := a.query(cmd, shotNum, args[1])
			sig, err := a.fetcher.GetSignal(cmd.Context(), q)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asCSV {
				for i := range sig.Axis {
					fmt.Fprintf(out, "%g,%g\n", sig.Axis[i], sig.Values[i])
				}
				return nil
			}

			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range sig.Values {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			printer.Fprintf(out, "%s @ shot %d (%s tree)\n", args[1], shotNum, q.Tree)
			printer.Fprintf(out, "  samples: %d\n", len(sig.Values))
			if len(sig.Axis) > 0 {
				printer.Fprintf(out, "  axis:    %g .. %g\n", sig.Axis[0], sig.Axis[len(sig.Axis)-1])
				printer.Fprintf(out, "  values:  %g .. %g\n", lo, hi)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "print axis,value pairs as CSV")

	return cmd
}

// newUnitsCmd creates the units command.
func newUnitsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "units <shot> <name>",
		Short: "Fetch the units recorded for a signal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shotNum, err := parseShotArg(args[0])
			if err != nil {
				return err
			}

			units, err := a.fetcher.GetSignalUnits(cmd.Context(), a.query(cmd, shotNum, args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), units)
			return nil
		},
	}
}
