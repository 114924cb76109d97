package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fakeyudi/encore/internal/journal"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every take and all kept audio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openJournal(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if !resetYes {
			all, err := store.List(ctx, journal.Query{})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "This deletes all %d takes. Type 'yes' to continue: ", len(all))
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.TrimSpace(line) != "yes" {
				fmt.Fprintln(out, "Reset cancelled.")
				return nil
			}
		}

		if err := store.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Journal cleared.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
