package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fakeyudi/encore/internal/analysis"
	"github.com/fakeyudi/encore/internal/capture"
	"github.com/fakeyudi/encore/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecorder struct {
	mu     sync.Mutex
	active bool
}

func (s *stubRecorder) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return capture.ErrAlreadyActive
	}
	s.active = true
	return nil
}

func (s *stubRecorder) Stop() (*capture.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	return &capture.Artifact{Data: make([]byte, 250000), ContentType: "audio/wav"}, nil
}

func (s *stubRecorder) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	return nil
}

func (s *stubRecorder) Elapsed() int { return 3 }

type sliceSink struct {
	mu      sync.Mutex
	records []session.Record
}

func (s *sliceSink) Submit(_ context.Context, r session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func newTestRecorder(t *testing.T) (Recorder, *sliceSink) {
	t.Helper()
	sink := &sliceSink{}
	mock := &analysis.Mock{}
	ctrl := session.New(session.Config{
		Recorder:          &stubRecorder{},
		Durations:         mock,
		Notes:             mock,
		Sink:              sink,
		DefaultInstrument: "violin",
	})
	return NewRecorder(context.Background(), ctrl), sink
}

// send delivers msg and returns the updated model with the command it produced.
func send(t *testing.T, m Recorder, msg tea.Msg) (Recorder, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	rm, ok := next.(Recorder)
	require.True(t, ok)
	return rm, cmd
}

// press delivers a key and runs the resulting command, feeding its message
// back into the model.
func press(t *testing.T, m Recorder, key tea.KeyMsg) Recorder {
	t.Helper()
	m, cmd := send(t, m, key)
	require.NotNil(t, cmd, "key %q produced no command", key.String())
	m, _ = send(t, m, cmd())
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func recordOneTake(t *testing.T, m Recorder) Recorder {
	t.Helper()
	m = press(t, m, runes("r"))
	require.Equal(t, session.KindRecording, m.ctrl.State().Kind())

	m, cmd := send(t, m, runes("s"))
	require.NotNil(t, cmd)
	m, wait := send(t, m, cmd())
	require.NotNil(t, wait, "stop should wait for analysis to settle")
	m, _ = send(t, m, wait())
	require.Equal(t, session.KindRecorded, m.ctrl.State().Kind())
	return m
}

func TestRecorderRecordAndSave(t *testing.T) {
	m, sink := newTestRecorder(t)
	m = recordOneTake(t, m)

	assert.Equal(t, "violin", m.instrument.Value(), "instrument pre-filled from the default")
	assert.Contains(t, m.View(), "Playing")

	m, _ = send(t, m, runes("Scales"))
	assert.Equal(t, "Scales", m.title.Value())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NoError(t, m.err)
	assert.Equal(t, session.KindIdle, m.ctrl.State().Kind())
	require.Len(t, sink.records, 1)
	assert.Equal(t, "Scales", sink.records[0].Title)
	assert.Equal(t, "violin", sink.records[0].Instrument)
	assert.Equal(t, 25, sink.records[0].DurationSeconds)
	assert.Len(t, m.Saved(), 1)
	assert.Contains(t, m.View(), `saved "Scales"`)
}

func TestRecorderSaveWithoutTitleShowsError(t *testing.T) {
	m, sink := newTestRecorder(t)
	m = recordOneTake(t, m)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Error(t, m.err)
	assert.ErrorIs(t, m.err, session.ErrValidationFailed)
	assert.Equal(t, session.KindRecorded, m.ctrl.State().Kind())
	assert.Empty(t, sink.records)
}

func TestRecorderSuggestTitle(t *testing.T) {
	m, _ := newTestRecorder(t)
	m = recordOneTake(t, m)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusNotes, m.focus)
	m, _ = send(t, m, runes("left hand arpeggios"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	require.NoError(t, m.err)
	assert.Equal(t, "Practice log: left hand arpeggios...", m.title.Value())
	assert.Equal(t, analysis.MockSummary, m.summary)
}

func TestRecorderDiscardReturnsToIdle(t *testing.T) {
	m, sink := newTestRecorder(t)
	m = recordOneTake(t, m)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, session.KindIdle, m.ctrl.State().Kind())
	assert.Empty(t, m.title.Value())
	assert.Empty(t, sink.records)
}

func TestRecorderQuitFromIdle(t *testing.T) {
	m, _ := newTestRecorder(t)
	_, cmd := send(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
