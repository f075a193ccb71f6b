package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mstlab/sigfetch/internal/shot"
)

// newShotCmd creates the shot command group: pure shot-number arithmetic
// plus the current-shot query.
func newShotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shot",
		Short: "Shot-number utilities",
	}
	cmd.AddCommand(newShotInfoCmd(a), newShotRangeCmd(), newShotCurrentCmd(a))
	return cmd
}

func newShotInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <shot>",
		Short: "Decode a shot number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("shot number %q is not an integer", args[0])
			}

			out := cmd.OutOrStdout()
			if !shot.Valid(n) {
				fmt.Fprintf(out, "%d is not a valid shot number\n", n)
				return nil
			}

			d, err := shot.ToDate(n)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "shot:     %d\n", n)
			fmt.Fprintf(out, "date:     %s\n", d.Format("2006-01-02"))
			fmt.Fprintf(out, "sequence: %d\n", shot.Seq(n))
			fmt.Fprintf(out, "server:   %s\n", a.router.Route(n))
			return nil
		},
	}
}

func newShotRangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "range <date|today>",
		Short: "Print the shot-number range for a date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var d time.Time
			if args[0] == "today" {
				d = time.Now()
			} else {
				var err error
				d, err = time.Parse("2006-01-02", args[0])
				if err != nil {
					return fmt.Errorf("date %q: want YYYY-MM-DD or \"today\"", args[0])
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d .. %d\n", shot.MinShotForDate(d), shot.MaxShotForDate(d))
			return nil
		},
	}
}

func newShotCurrentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Ask the day server for the shot in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.fetcher.CurrentShot(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
