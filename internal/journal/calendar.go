package journal

import (
	"sort"
	"time"
)

// DateLayout is the key used to group entries by local calendar day.
const DateLayout = "2006-01-02"

// Day is one calendar day of practice.
type Day struct {
	Date         time.Time `json:"date"`
	TotalSeconds int       `json:"total_seconds"`
	Records      int       `json:"records"`
}

// Weekday returns the day of the week of d.
func (d Day) Weekday() time.Weekday { return d.Date.Weekday() }

// WeekStart returns local midnight of the Sunday on or before t.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, t.Location())
}

// ShiftWeeks moves start by n weeks, keeping local midnight across DST.
func ShiftWeeks(start time.Time, n int) time.Time {
	y, m, d := start.Date()
	return time.Date(y, m, d+7*n, 0, 0, 0, 0, start.Location())
}

// ByDate groups entries by their local date in loc.
func ByDate(entries []Entry, loc *time.Location) map[string][]Entry {
	out := make(map[string][]Entry)
	for _, e := range entries {
		key := e.Timestamp.In(loc).Format(DateLayout)
		out[key] = append(out[key], e)
	}
	return out
}

// Week returns the seven days starting at the Sunday of the week containing
// start, with practice totals summed from entries.
func Week(entries []Entry, start time.Time) []Day {
	ws := WeekStart(start)
	return span(entries, ws, 7)
}

// Month returns every day of the month containing t.
func Month(entries []Entry, t time.Time) []Day {
	y, m, _ := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	n := first.AddDate(0, 1, -1).Day()
	return span(entries, first, n)
}

func span(entries []Entry, first time.Time, n int) []Day {
	groups := ByDate(entries, first.Location())
	y, m, d := first.Date()
	days := make([]Day, n)
	for i := range days {
		date := time.Date(y, m, d+i, 0, 0, 0, 0, first.Location())
		day := Day{Date: date}
		for _, e := range groups[date.Format(DateLayout)] {
			day.TotalSeconds += e.DurationSeconds
			day.Records++
		}
		days[i] = day
	}
	return days
}

// MaxTotal returns the largest day total, never less than 1 so it can be
// used as a chart denominator.
func MaxTotal(days []Day) int {
	hi := 1
	for _, d := range days {
		if d.TotalSeconds > hi {
			hi = d.TotalSeconds
		}
	}
	return hi
}

// TotalSeconds sums the day totals.
func TotalSeconds(days []Day) int {
	total := 0
	for _, d := range days {
		total += d.TotalSeconds
	}
	return total
}

// OnDay returns the entries recorded on the local date of day, oldest first.
func OnDay(entries []Entry, day time.Time) []Entry {
	key := day.Format(DateLayout)
	var out []Entry
	for _, e := range entries {
		if e.Timestamp.In(day.Location()).Format(DateLayout) == key {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
