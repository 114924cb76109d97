// Package tui provides the Bubble Tea screens: a recorder that drives a take
// through the session controller and a viewer for weekly practice reports.
package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fakeyudi/encore/internal/journal"
	"github.com/fakeyudi/encore/internal/report"
)

// ── Tabs ──────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabWeek
	tabCompare
	tabRecords
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Week", "Compare", "Records", "Timeline",
}

const barWidth = 30

// ── Model ────────────────────

// Model is the report viewer.
type Model struct {
	report    *report.Report
	filename  string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	// Records tab: cursor position and expanded set
	recordCursor    int
	expandedRecords map[int]bool
}

// New creates a viewer for r, titled with the base name of filename.
func New(r *report.Report, filename string) Model {
	return Model{
		report:          r,
		filename:        filepath.Base(filename),
		expandedRecords: make(map[int]bool),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4", "5":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.refresh(tabTimeline)
				m.viewports[tabTimeline].GotoTop()
			}
		case "up", "k":
			if m.activeTab == tabRecords && m.recordCursor > 0 {
				m.recordCursor--
				m.refresh(tabRecords)
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabRecords && m.recordCursor < len(m.report.Records)-1 {
				m.recordCursor++
				m.refresh(tabRecords)
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabRecords && len(m.report.Records) > 0 {
				if m.expandedRecords[m.recordCursor] {
					delete(m.expandedRecords, m.recordCursor)
				} else {
					m.expandedRecords[m.recordCursor] = true
				}
				m.refresh(tabRecords)
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  encore  " + m.filename)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-5 jump  q quit"
	switch m.activeTab {
	case tabTimeline:
		hint += "  s sort (" + m.sortLabel() + ")"
	case tabRecords:
		hint += "  ↑/↓ select  enter expand/collapse"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar(m.width, hint, pct))
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) refresh(t tabID) {
	m.viewports[t].SetContent(m.renderTab(t))
}

func (m *Model) sortLabel() string {
	if m.sortAsc {
		return "oldest first"
	}
	return "newest first"
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabWeek:
		return m.renderWeek()
	case tabCompare:
		return m.renderCompare()
	case tabRecords:
		return m.renderRecords()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func (m *Model) renderSummary() string {
	var sb strings.Builder
	meta := m.report.Meta

	sb.WriteString(heading("Summary"))
	labelRow(&sb, "Week", meta.WeekStart.Format("Jan 2")+" to "+meta.WeekEnd().Format("Jan 2, 2006"))
	if meta.Author != "" {
		labelRow(&sb, "Player", meta.Author)
	}
	if meta.Instrument != "" {
		labelRow(&sb, "Instrument", meta.Instrument)
	}
	labelRow(&sb, "Practiced", journal.FormatHuman(meta.TotalSeconds))
	labelRow(&sb, "Peer average", journal.FormatHuman(meta.PeerSeconds))
	labelRow(&sb, "Records", fmt.Sprintf("%d", len(m.report.Records)))
	if !meta.GeneratedAt.IsZero() {
		labelRow(&sb, "Generated", meta.GeneratedAt.Format("2006-01-02 15:04"))
	}

	if len(m.report.Records) == 0 {
		sb.WriteString("\n" + dimStyle.Render("  No practice recorded this week.") + "\n")
	}
	return sb.String()
}

func (m *Model) renderWeek() string {
	var sb strings.Builder
	sb.WriteString(heading("Week"))

	hi := journal.MaxTotal(m.report.Days)
	for _, d := range m.report.Days {
		day := timeStyle.Render(d.Date.Format("Mon Jan 02"))
		sb.WriteString(fmt.Sprintf("  %s  %s %s\n",
			day,
			userBarStyle.Render(fmt.Sprintf("%-*s", barWidth, bar(d.TotalSeconds, hi, barWidth))),
			dimStyle.Render(fmt.Sprintf("%s  (%d)", journal.FormatHuman(d.TotalSeconds), d.Records)),
		))
	}
	return sb.String()
}

func (m *Model) renderCompare() string {
	var sb strings.Builder
	sb.WriteString(heading("Compared with peers"))

	hi := journal.ComparisonMax(m.report.Comparison)
	for _, c := range m.report.Comparison {
		sb.WriteString("  " + timeStyle.Render(c.Date.Format("Mon")) + "  " +
			userBarStyle.Render(fmt.Sprintf("%-*s", barWidth, bar(c.UserSeconds, hi, barWidth))) + " " +
			journal.FormatHuman(c.UserSeconds) + "\n")
		sb.WriteString("       " +
			peerBarStyle.Render(fmt.Sprintf("%-*s", barWidth, bar(c.PeerSeconds, hi, barWidth))) + " " +
			dimStyle.Render(journal.FormatHuman(c.PeerSeconds)+" peers") + "\n\n")
	}
	user, peer := journal.ComparisonTotals(m.report.Comparison)
	labelRow(&sb, "You", journal.FormatHuman(user))
	labelRow(&sb, "Peers", journal.FormatHuman(peer))
	return sb.String()
}

func (m *Model) renderRecords() string {
	var sb strings.Builder
	sb.WriteString(heading("Records"))
	if len(m.report.Records) == 0 {
		sb.WriteString(dimStyle.Render("  (no records)") + "\n")
		return sb.String()
	}

	for i, e := range m.report.Records {
		row := fmt.Sprintf("  %s  %-28s  %-12s  %s",
			e.Timestamp.Format("Mon 15:04"),
			e.Title,
			e.Instrument,
			journal.FormatClock(e.DurationSeconds),
		)
		if i == m.recordCursor {
			sb.WriteString(selectedRowStyle.Render(row) + "\n")
		} else {
			sb.WriteString(row + "\n")
		}
		if m.expandedRecords[i] {
			if e.Notes != "" {
				sb.WriteString(indent(e.Notes, "      ") + "\n")
			}
			if e.Summary != "" {
				sb.WriteString(dimStyle.Render(indent(e.Summary, "      ")) + "\n")
			}
			if e.Notes == "" && e.Summary == "" {
				sb.WriteString(dimStyle.Render("      (no notes)") + "\n")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m *Model) renderTimeline() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Timeline (%s)", m.sortLabel())))

	events := make([]journal.Entry, len(m.report.Records))
	copy(events, m.report.Records)
	if m.sortAsc {
		sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	} else {
		sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	}

	if len(events) == 0 {
		sb.WriteString(dimStyle.Render("  (no practice this week)") + "\n")
		return sb.String()
	}

	for _, e := range events {
		ts := timeStyle.Render(e.Timestamp.Format("Mon 15:04"))
		sb.WriteString(ts + kindTakeStyle.Render("  TAKE    ") + "  " + e.Title + dimStyle.Render("  "+journal.FormatHuman(e.DurationSeconds)) + "\n")
		if e.Summary != "" {
			sb.WriteString(ts + kindSummaryStyle.Render("  SUMMARY ") + "  " + e.Summary + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// Run starts the viewer for r.
func Run(r *report.Report, filename string) error {
	p := tea.NewProgram(New(r, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
