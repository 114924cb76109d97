package cmd

import (
	"fmt"

	"github.com/fakeyudi/encore/internal/journal"
	"github.com/spf13/cobra"
)

var (
	logLimit      int
	logInstrument string
	logWeekOffset int
	logWeek       bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List saved takes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openJournal(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		q := journal.Query{Instrument: logInstrument, Limit: logLimit}
		if logWeek {
			q.From = weekStart(logWeekOffset)
			q.To = journal.ShiftWeeks(q.From, 1)
		}
		entries, err := store.List(ctx, q)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No takes recorded yet. Run 'encore record' to add one.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s  %s  %s  %-12s  %s\n",
				shortID(e.ID),
				e.Timestamp.Format("2006-01-02 15:04"),
				journal.FormatClock(e.DurationSeconds),
				e.Instrument,
				e.Title,
			)
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "maximum number of takes to list (0 for all)")
	logCmd.Flags().StringVar(&logInstrument, "instrument", "", "only list takes on this instrument")
	logCmd.Flags().BoolVar(&logWeek, "week", false, "only list takes from the current week")
	logCmd.Flags().IntVar(&logWeekOffset, "week-offset", 0, "with --week, shift by this many weeks (-1 is last week)")
	rootCmd.AddCommand(logCmd)
}
