package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mstlab/sigfetch/internal/tui"
)

// newBrowseCmd creates the interactive cache browser command.
func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse cached entries interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdout) {
				return fmt.Errorf("browse needs a terminal; use 'sigfetch cache ls' instead")
			}

			entries, err := a.store.Entries()
			if err != nil {
				return err
			}

			p := tea.NewProgram(tui.NewBrowser(entries), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}
