package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newCacheCmd creates the cache management command group.
func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the local result cache",
	}
	cmd.AddCommand(newCacheLsCmd(a), newCacheSizeCmd(a), newCacheClearCmd(a))
	return cmd
}

func newCacheLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List cached entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.store.Entries()
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool {
				if entries[i].Tree != entries[j].Tree {
					return entries[i].Tree < entries[j].Tree
				}
				if entries[i].Shot != entries[j].Shot {
					return entries[i].Shot < entries[j].Shot
				}
				return entries[i].Digest < entries[j].Digest
			})

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TREE\tSHOT\tDIGEST\tSIZE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%.12s\t%s\n", e.Tree, e.Shot, e.Digest, formatBytes(e.Size))
			}
			return w.Flush()
		},
	}
}

func newCacheSizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Print total cache size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.store.Entries()
			if err != nil {
				return err
			}
			var total int64
			for _, e := range entries {
				total += e.Size
			}
			printer.Fprintf(cmd.OutOrStdout(), "%d entries, %s in %s\n",
				len(entries), formatBytes(total), a.store.Root())
			return nil
		},
	}
}

func newCacheClearCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("refusing to clear %s without --force", a.store.Root())
			}
			return a.store.Clear()
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "actually delete the cache contents")

	return cmd
}
