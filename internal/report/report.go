// Package report builds a shareable weekly practice report and renders it as
// Markdown or JSON.
package report

import (
	"sort"
	"time"

	"github.com/fakeyudi/encore/internal/journal"
)

// Report is the complete, renderable representation of one practice week.
type Report struct {
	Meta       Meta                 `json:"meta"`
	Days       []journal.Day        `json:"days"`
	Comparison []journal.Comparison `json:"comparison"`
	Records    []journal.Entry      `json:"records"`
}

// Meta holds summary metadata for the report.
type Meta struct {
	GeneratedAt  time.Time `json:"generated_at"`
	WeekStart    time.Time `json:"week_start"`
	Author       string    `json:"author,omitempty"`
	Instrument   string    `json:"instrument,omitempty"`
	TotalSeconds int       `json:"total_seconds"`
	PeerSeconds  int       `json:"peer_seconds"`
}

// WeekEnd returns the last day of the reported week.
func (m Meta) WeekEnd() time.Time {
	return m.WeekStart.AddDate(0, 0, 6)
}

// Build assembles the report for the week containing weekStart from entries.
// Entries outside the week are ignored; peers follows journal.Compare.
func Build(entries []journal.Entry, weekStart time.Time, peers []int, meta Meta) (*Report, error) {
	ws := journal.WeekStart(weekStart)
	end := journal.ShiftWeeks(ws, 1)

	var inWeek []journal.Entry
	for _, e := range entries {
		if !e.Timestamp.Before(ws) && e.Timestamp.Before(end) {
			inWeek = append(inWeek, e)
		}
	}
	sort.SliceStable(inWeek, func(i, j int) bool { return inWeek[i].Timestamp.Before(inWeek[j].Timestamp) })

	days := journal.Week(inWeek, ws)
	cmp, err := journal.Compare(days, peers)
	if err != nil {
		return nil, err
	}

	meta.WeekStart = ws
	meta.TotalSeconds, meta.PeerSeconds = journal.ComparisonTotals(cmp)
	return &Report{
		Meta:       meta,
		Days:       days,
		Comparison: cmp,
		Records:    inWeek,
	}, nil
}
