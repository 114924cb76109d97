package cmd

import (
	"fmt"
	"time"

	"github.com/fakeyudi/encore/internal/journal"
	"github.com/spf13/cobra"
)

var (
	calendarWeekOffset int
	calendarMonth      bool
	calendarDay        string
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show practice time per day for a week or month",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openJournal(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if calendarDay != "" {
			day, err := time.ParseInLocation(journal.DateLayout, calendarDay, now().Location())
			if err != nil {
				return fmt.Errorf("invalid --day %q, want YYYY-MM-DD", calendarDay)
			}
			entries, err := store.List(ctx, journal.Query{From: day, To: day.AddDate(0, 0, 1)})
			if err != nil {
				return err
			}
			takes := journal.OnDay(entries, day)
			fmt.Fprintf(out, "%s\n", day.Format("Monday, Jan 2, 2006"))
			if len(takes) == 0 {
				fmt.Fprintln(out, "  (no practice)")
				return nil
			}
			total := 0
			for _, e := range takes {
				total += e.DurationSeconds
				fmt.Fprintf(out, "  %s  %s  %s\n", e.Timestamp.Format("15:04"), journal.FormatClock(e.DurationSeconds), e.Title)
			}
			fmt.Fprintf(out, "  Total: %s\n", journal.FormatHuman(total))
			return nil
		}

		if calendarMonth {
			t := now()
			first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
			entries, err := store.List(ctx, journal.Query{From: first, To: first.AddDate(0, 1, 0)})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", first.Format("January 2006"))
			printDays(out, journal.Month(entries, t), "Mon 02")
			return nil
		}

		ws := weekStart(calendarWeekOffset)
		entries, err := store.List(ctx, journal.Query{From: ws, To: journal.ShiftWeeks(ws, 1)})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Week of %s\n", ws.Format("Jan 2, 2006"))
		printDays(out, journal.Week(entries, ws), "Mon 01-02")
		return nil
	},
}

func init() {
	calendarCmd.Flags().IntVar(&calendarWeekOffset, "week-offset", 0, "shift by this many weeks (-1 is last week)")
	calendarCmd.Flags().BoolVar(&calendarMonth, "month", false, "show the current month instead of a week")
	calendarCmd.Flags().StringVar(&calendarDay, "day", "", "list the takes of one day (YYYY-MM-DD)")
	rootCmd.AddCommand(calendarCmd)
}
