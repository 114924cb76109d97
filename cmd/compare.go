package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var compareWeekOffset int

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a week of practice with the peer average",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openJournal(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		r, err := buildWeekReport(ctx, store, weekStart(compareWeekOffset))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Week of %s\n", r.Meta.WeekStart.Format("Jan 2, 2006"))
		printComparison(out, r.Comparison)
		return nil
	},
}

func init() {
	compareCmd.Flags().IntVar(&compareWeekOffset, "week-offset", 0, "shift by this many weeks (-1 is last week)")
	rootCmd.AddCommand(compareCmd)
}
