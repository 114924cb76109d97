package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fakeyudi/encore/internal/journal"
	"github.com/fakeyudi/encore/internal/report"
)

const plainBarWidth = 30

func plainBar(value, hi int) string {
	if value <= 0 || hi < 1 {
		return ""
	}
	n := value * plainBarWidth / hi
	if n < 1 {
		n = 1
	}
	return strings.Repeat("#", n)
}

// printDays writes one line per day with a bar scaled to the busiest day.
func printDays(w io.Writer, days []journal.Day, dateLayout string) {
	hi := journal.MaxTotal(days)
	for _, d := range days {
		fmt.Fprintf(w, "  %s  %-*s  %s\n",
			d.Date.Format(dateLayout), plainBarWidth, plainBar(d.TotalSeconds, hi), journal.FormatHuman(d.TotalSeconds))
	}
	fmt.Fprintf(w, "  Total: %s\n", journal.FormatHuman(journal.TotalSeconds(days)))
}

// printComparison writes the user's and the peers' time side by side.
func printComparison(w io.Writer, cs []journal.Comparison) {
	hi := journal.ComparisonMax(cs)
	for _, c := range cs {
		fmt.Fprintf(w, "  %s  you    %-*s  %s\n", c.Date.Format("Mon"), plainBarWidth, plainBar(c.UserSeconds, hi), journal.FormatHuman(c.UserSeconds))
		fmt.Fprintf(w, "       peers  %-*s  %s\n", plainBarWidth, plainBar(c.PeerSeconds, hi), journal.FormatHuman(c.PeerSeconds))
	}
	user, peer := journal.ComparisonTotals(cs)
	fmt.Fprintf(w, "  Total: you %s, peers %s\n", journal.FormatHuman(user), journal.FormatHuman(peer))
}

// printReport writes a plain-text rendition of r.
func printReport(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "  Week:        %s to %s\n", r.Meta.WeekStart.Format("2006-01-02"), r.Meta.WeekEnd().Format("2006-01-02"))
	if r.Meta.Author != "" {
		fmt.Fprintf(w, "  Player:      %s\n", r.Meta.Author)
	}
	if r.Meta.Instrument != "" {
		fmt.Fprintf(w, "  Instrument:  %s\n", r.Meta.Instrument)
	}
	fmt.Fprintf(w, "  Practiced:   %s\n", journal.FormatHuman(r.Meta.TotalSeconds))
	fmt.Fprintf(w, "  Peers:       %s\n", journal.FormatHuman(r.Meta.PeerSeconds))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Week")
	printDays(w, r.Days, "Mon 01-02")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Compared with peers")
	printComparison(w, r.Comparison)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Records")
	if len(r.Records) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, e := range r.Records {
		fmt.Fprintf(w, "  [%s] %s  %s  (%s)\n", e.Timestamp.Format("2006-01-02 15:04"), journal.FormatClock(e.DurationSeconds), e.Title, e.Instrument)
		if e.Notes != "" {
			fmt.Fprintln(w, indent(e.Notes, "      "))
		}
		if e.Summary != "" {
			fmt.Fprintln(w, indent(e.Summary, "      > "))
		}
	}
	fmt.Fprintln(w)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
