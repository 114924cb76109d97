package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fakeyudi/encore/internal/analysis"
	"github.com/fakeyudi/encore/internal/journal"
	"github.com/fakeyudi/encore/internal/session"
)

const clockRefresh = 250 * time.Millisecond

// ── Messages ──────────────

type startedMsg struct{ err error }

type stoppedMsg struct{ err error }

// settledMsg arrives once playing-time analysis has applied its result.
type settledMsg struct{}

type notesAnalyzedMsg struct {
	notes analysis.Notes
	err   error
}

type savedMsg struct {
	rec session.Record
	err error
}

type tickMsg time.Time

// ── Model ────────────────────

const (
	focusTitle = iota
	focusInstrument
	focusNotes
	focusCount
)

// Recorder is the recording screen. It owns no take state of its own: every
// key is translated into a controller call and the view is rendered from
// the controller's current state.
type Recorder struct {
	ctx  context.Context
	ctrl *session.Controller

	spinner    spinner.Model
	title      textinput.Model
	instrument textinput.Model
	notes      textarea.Model
	focus      int

	analyzingNotes bool
	saving         bool
	summary        string
	err            error
	saved          []session.Record
	width          int
}

// NewRecorder returns a recording screen driving ctrl.
func NewRecorder(ctx context.Context, ctrl *session.Controller) Recorder {
	title := textinput.New()
	title.Placeholder = "What did you practice?"
	title.CharLimit = 120
	title.Prompt = ""

	instrument := textinput.New()
	instrument.Placeholder = "Instrument"
	instrument.CharLimit = 60
	instrument.Prompt = ""

	notes := textarea.New()
	notes.Placeholder = "How did it go? Tempo, trouble spots, next steps…"
	notes.ShowLineNumbers = false
	notes.SetHeight(5)
	notes.SetWidth(60)

	return Recorder{
		ctx:        ctx,
		ctrl:       ctrl,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		title:      title,
		instrument: instrument,
		notes:      notes,
	}
}

// Saved returns the records saved while the screen was open.
func (m Recorder) Saved() []session.Record { return m.saved }

// ── Commands ──────────────

func (m Recorder) start() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg { return startedMsg{err: ctrl.Start(ctx)} }
}

func (m Recorder) stop() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg { return stoppedMsg{err: ctrl.Stop(ctx)} }
}

func waitSettled(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return settledMsg{}
	}
}

func (m Recorder) analyzeNotes() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		n, err := ctrl.AnalyzeNotes(ctx)
		return notesAnalyzedMsg{notes: n, err: err}
	}
}

func (m Recorder) save() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		rec, err := ctrl.Save(ctx)
		return savedMsg{rec: rec, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(clockRefresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// ── Bubble Tea interface ───────────────

func (m Recorder) Init() tea.Cmd { return m.spinner.Tick }

func (m Recorder) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := msg.Width - 8
		if w > 72 {
			w = 72
		}
		if w > 20 {
			m.notes.SetWidth(w)
			m.title.Width = w
			m.instrument.Width = w
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.ctrl.Snapshot().Kind == session.KindRecording {
			return m, tick()
		}
		return m, nil

	case startedMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		return m, tick()

	case stoppedMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		return m, waitSettled(m.ctrl.Settled())

	case settledMsg:
		if snap := m.ctrl.Snapshot(); snap.Kind == session.KindRecorded {
			cmd := m.loadTake(snap.Metadata)
			return m, cmd
		}
		return m, nil

	case notesAnalyzedMsg:
		m.analyzingNotes = false
		if msg.err != nil {
			if !errors.Is(msg.err, session.ErrSessionChanged) {
				m.err = msg.err
			}
			return m, nil
		}
		m.err = nil
		m.title.SetValue(msg.notes.Title)
		m.summary = msg.notes.Summary
		return m, nil

	case savedMsg:
		m.saving = false
		m.err = msg.err
		if msg.err == nil {
			m.saved = append(m.saved, msg.rec)
			m.clearTake()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Recorder) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		_ = m.ctrl.Discard()
		return m, tea.Quit
	}

	switch m.ctrl.Snapshot().Kind {
	case session.KindIdle:
		switch msg.String() {
		case "r", "enter":
			m.err = nil
			return m, m.start()
		case "q", "esc":
			return m, tea.Quit
		}

	case session.KindRecording:
		switch msg.String() {
		case "s", "enter", " ":
			return m, m.stop()
		case "d", "esc":
			m.discard()
		}

	case session.KindAnalyzingAudio:
		switch msg.String() {
		case "d", "esc":
			m.discard()
		}

	case session.KindRecorded:
		if m.saving {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			m.discard()
			return m, nil
		case "tab":
			cmd := m.setFocus((m.focus + 1) % focusCount)
			return m, cmd
		case "shift+tab":
			cmd := m.setFocus((m.focus - 1 + focusCount) % focusCount)
			return m, cmd
		case "ctrl+s":
			m.sync()
			m.saving = true
			m.err = nil
			return m, m.save()
		case "ctrl+g":
			if m.analyzingNotes {
				return m, nil
			}
			m.sync()
			m.analyzingNotes = true
			m.err = nil
			return m, m.analyzeNotes()
		}
		var cmd tea.Cmd
		switch m.focus {
		case focusTitle:
			m.title, cmd = m.title.Update(msg)
		case focusInstrument:
			m.instrument, cmd = m.instrument.Update(msg)
		case focusNotes:
			m.notes, cmd = m.notes.Update(msg)
		}
		m.sync()
		return m, cmd
	}
	return m, nil
}

// sync pushes the form fields into the recorded take.
func (m *Recorder) sync() {
	_ = m.ctrl.SetTitle(m.title.Value())
	_ = m.ctrl.SetInstrument(m.instrument.Value())
	_ = m.ctrl.SetNotes(m.notes.Value())
}

func (m *Recorder) setFocus(f int) tea.Cmd {
	m.focus = f
	m.title.Blur()
	m.instrument.Blur()
	m.notes.Blur()
	switch f {
	case focusTitle:
		return m.title.Focus()
	case focusInstrument:
		return m.instrument.Focus()
	default:
		return m.notes.Focus()
	}
}

func (m *Recorder) loadTake(md session.Metadata) tea.Cmd {
	m.title.SetValue(md.Title)
	m.instrument.SetValue(md.Instrument)
	m.notes.SetValue(md.Notes)
	m.summary = md.Summary
	return m.setFocus(focusTitle)
}

func (m *Recorder) clearTake() {
	m.title.Reset()
	m.instrument.Reset()
	m.notes.Reset()
	m.summary = ""
	m.analyzingNotes = false
	m.focus = focusTitle
	m.title.Blur()
	m.instrument.Blur()
	m.notes.Blur()
}

func (m *Recorder) discard() {
	m.err = m.ctrl.Discard()
	m.clearTake()
}

// ── View ─────────────────────

func (m Recorder) View() string {
	var sb strings.Builder
	width := m.width
	if width <= 0 {
		width = 80
	}
	sb.WriteString(titleStyle.Width(width).Render("  encore  record") + "\n")

	var hint string
	snap := m.ctrl.Snapshot()
	switch snap.Kind {
	case session.KindIdle:
		sb.WriteString(clockStyle.Render(journal.FormatClock(0)) + "\n")
		sb.WriteString(dimStyle.Render("  Ready when you are.") + "\n")
		for _, r := range m.saved {
			sb.WriteString(okStyle.Render("  ✓ ") + fmt.Sprintf("saved %q  %s", r.Title, journal.FormatHuman(r.DurationSeconds)) + "\n")
		}
		hint = "  r record  q quit"

	case session.KindRecording:
		sb.WriteString(clockStyle.Render(recordingDot+" REC  "+journal.FormatClock(snap.ElapsedSeconds)) + "\n")
		sb.WriteString(dimStyle.Render("  started "+snap.StartedAt.Format("15:04:05")) + "\n")
		hint = "  s stop  d discard  ctrl+c quit"

	case session.KindAnalyzingAudio:
		sb.WriteString(clockStyle.Render(journal.FormatClock(snap.ElapsedSeconds)) + "\n")
		sb.WriteString("  " + m.spinner.View() + " Measuring playing time…\n")
		hint = "  d discard  ctrl+c quit"

	case session.KindRecorded:
		sb.WriteString(clockStyle.Render(journal.FormatClock(snap.PlayingSeconds)) + "\n")
		labelRow(&sb, "Recorded", journal.FormatHuman(snap.ElapsedSeconds))
		labelRow(&sb, "Playing", journal.FormatHuman(snap.PlayingSeconds))
		if snap.Warning != "" {
			sb.WriteString(warnStyle.Render("  ! "+snap.Warning) + "\n")
		}
		sb.WriteString("\n")
		sb.WriteString(m.field("Title", m.title.View(), focusTitle))
		sb.WriteString(m.field("Instrument", m.instrument.View(), focusInstrument))
		sb.WriteString(m.field("Notes", "\n"+m.notes.View(), focusNotes))
		if m.analyzingNotes {
			sb.WriteString("  " + m.spinner.View() + " Reading your notes…\n")
		} else if m.summary != "" {
			sb.WriteString(heading("Summary"))
			sb.WriteString(bullet(m.summary))
		}
		if m.saving {
			sb.WriteString("  " + m.spinner.View() + " Saving…\n")
		}
		hint = "  tab next field  ctrl+g suggest title  ctrl+s save  esc discard"

	case session.KindSaving:
		sb.WriteString("  " + m.spinner.View() + " Saving " + fmt.Sprintf("%q", snap.Metadata.Title) + "…\n")
		hint = "  ctrl+c quit"
	}

	if m.err != nil {
		sb.WriteString("\n" + errStyle.Render("  "+m.err.Error()) + "\n")
	}
	return lipgloss.JoinVertical(lipgloss.Left, sb.String(), statusBar(width, hint, ""))
}

func (m Recorder) field(label, view string, f int) string {
	l := labelStyle.Render(fmt.Sprintf("  %-12s", label))
	if m.focus == f {
		l = activeTabStyle.Render(fmt.Sprintf(" %-11s", label)) + " "
	}
	return l + " " + view + "\n"
}

// RunRecorder opens the recording screen and returns the records saved
// before the user quit. A take still in progress on exit is discarded.
func RunRecorder(ctx context.Context, ctrl *session.Controller) ([]session.Record, error) {
	p := tea.NewProgram(NewRecorder(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if rm, ok := final.(Recorder); ok {
		return rm.saved, err
	}
	return nil, err
}
