package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fakeyudi/encore/internal/journal"
)

const (
	versionSentinel = "<!-- encore-report-version: 1 -->"
	dataPrefix      = "<!-- encore-data: "
	dataSuffix      = " -->"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// MarkdownRenderer renders a Report as human-readable Markdown with an
// embedded base64 JSON payload for lossless round-trip parsing.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(r *Report) ([]byte, error) {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder

	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	fmt.Fprintf(&sb, "# Practice week of %s to %s\n\n",
		r.Meta.WeekStart.Format("Jan 2"),
		r.Meta.WeekEnd().Format("Jan 2, 2006"),
	)

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Total practice: %s\n", journal.FormatHuman(r.Meta.TotalSeconds))
	fmt.Fprintf(&sb, "- Peer average: %s\n", journal.FormatHuman(r.Meta.PeerSeconds))
	fmt.Fprintf(&sb, "- Takes: %d\n", len(r.Records))
	if r.Meta.Author != "" {
		fmt.Fprintf(&sb, "- Player: %s\n", r.Meta.Author)
	}
	if r.Meta.Instrument != "" {
		fmt.Fprintf(&sb, "- Instrument: %s\n", r.Meta.Instrument)
	}
	fmt.Fprintf(&sb, "- Generated: %s\n", r.Meta.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	sb.WriteString("\n")

	sb.WriteString("## Week\n\n")
	sb.WriteString("| Day | Practice | Takes |\n")
	sb.WriteString("|-----|----------|-------|\n")
	for _, d := range r.Days {
		fmt.Fprintf(&sb, "| %s | %s | %d |\n", d.Date.Format("Mon Jan 2"), journal.FormatClock(d.TotalSeconds), d.Records)
	}
	sb.WriteString("\n")

	sb.WriteString("## Compared with peers\n\n")
	if len(r.Comparison) == 0 {
		sb.WriteString("_No comparison data._\n")
	} else {
		sb.WriteString("| Day | You | Peers |\n")
		sb.WriteString("|-----|-----|-------|\n")
		for _, c := range r.Comparison {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", c.Date.Format("Mon"),
				journal.FormatClock(c.UserSeconds), journal.FormatClock(c.PeerSeconds))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## Records\n\n")
	if len(r.Records) == 0 {
		sb.WriteString("_No practice recorded this week._\n")
	} else {
		for _, e := range r.Records {
			fmt.Fprintf(&sb, "### %s\n\n", oneLine(e.Title))
			fmt.Fprintf(&sb, "- When: %s\n", e.Timestamp.Format("2006-01-02 15:04"))
			fmt.Fprintf(&sb, "- Instrument: %s\n", oneLine(e.Instrument))
			fmt.Fprintf(&sb, "- Playing time: %s\n", journal.FormatClock(e.DurationSeconds))
			if e.Summary != "" {
				fmt.Fprintf(&sb, "\n> %s\n", oneLine(e.Summary))
			}
			if e.Notes != "" {
				sb.WriteString("\n")
				sb.WriteString(e.Notes)
				if !strings.HasSuffix(e.Notes, "\n") {
					sb.WriteString("\n")
				}
			}
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RendererFor returns the renderer for format ("markdown" or "json") and the
// file extension it writes.
func RendererFor(format string) (Renderer, string, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return MarkdownRenderer{}, ".md", nil
	case "json":
		return JSONRenderer{}, ".json", nil
	}
	return nil, "", fmt.Errorf("unknown format %q: want markdown or json", format)
}
