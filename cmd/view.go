package cmd

import (
	"github.com/fakeyudi/encore/internal/report"
	"github.com/fakeyudi/encore/internal/tui"
	"github.com/spf13/cobra"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "View an exported weekly report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		r, err := report.ReadFile(path)
		if err != nil {
			return err
		}

		if plainOutput {
			printReport(cmd.OutOrStdout(), r)
			return nil
		}
		return tui.Run(r, path)
	},
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(viewCmd)
}
