package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/encore/internal/analysis"
	"github.com/fakeyudi/encore/internal/capture"
	"github.com/fakeyudi/encore/internal/session"
)

// --- fakes ---

type fakeSource struct {
	mu      sync.Mutex
	openErr error
	emit    func([]byte)
}

func (s *fakeSource) Open(ctx context.Context, emit func([]byte)) (capture.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.emit = emit
	return fakeHandle{}, nil
}

func (s *fakeSource) push(b []byte) {
	s.mu.Lock()
	emit := s.emit
	s.mu.Unlock()
	emit(b)
}

type fakeHandle struct{}

func (fakeHandle) ContentType() string { return "audio/webm" }
func (fakeHandle) Close() error        { return nil }

type manualTicker struct{ ch chan time.Time }

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

// durationFunc adapts a function to analysis.DurationAnalyzer.
type durationFunc func(context.Context, *capture.Artifact) (analysis.Duration, error)

func (f durationFunc) AnalyzeDuration(ctx context.Context, a *capture.Artifact) (analysis.Duration, error) {
	return f(ctx, a)
}

type notesFunc func(context.Context, string) (analysis.Notes, error)

func (f notesFunc) AnalyzeNotes(ctx context.Context, notes string) (analysis.Notes, error) {
	return f(ctx, notes)
}

// gatedDurations blocks until the test releases a result.
type gatedDurations struct {
	results chan durationResult
	calls   chan struct{}
}

type durationResult struct {
	d   analysis.Duration
	err error
}

func newGatedDurations() *gatedDurations {
	return &gatedDurations{results: make(chan durationResult, 1), calls: make(chan struct{}, 1)}
}

func (g *gatedDurations) AnalyzeDuration(ctx context.Context, a *capture.Artifact) (analysis.Duration, error) {
	g.calls <- struct{}{}
	r := <-g.results
	return r.d, r.err
}

type memorySink struct {
	mu      sync.Mutex
	records []session.Record
	err     error
}

func (s *memorySink) Submit(ctx context.Context, r session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

func (s *memorySink) saved() []session.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]session.Record(nil), s.records...)
}

type harness struct {
	ctrl   *session.Controller
	cap    *capture.Capture
	src    *fakeSource
	ticker *manualTicker
	sink   *memorySink
}

func newHarness(durations analysis.DurationAnalyzer, notes analysis.NotesAnalyzer) *harness {
	src := &fakeSource{}
	mt := &manualTicker{ch: make(chan time.Time)}
	c := capture.New(src)
	c.NewTicker = func(time.Duration) capture.Ticker { return mt }
	sink := &memorySink{}
	ctrl := session.New(session.Config{
		Recorder:          c,
		Durations:         durations,
		Notes:             notes,
		Sink:              sink,
		DefaultInstrument: "piano",
		Now:               func() time.Time { return time.Date(2026, 3, 4, 19, 30, 0, 0, time.UTC) },
	})
	return &harness{ctrl: ctrl, cap: c, src: src, ticker: mt, sink: sink}
}

// tick delivers n ticks and returns once the capture has counted them.
func (h *harness) tick(n int) {
	want := h.cap.Elapsed() + n
	for i := 0; i < n; i++ {
		h.ticker.ch <- time.Now()
	}
	deadline := time.Now().Add(5 * time.Second)
	for h.cap.Elapsed() < want && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

func waitSettled(t interface{ Fatal(...any) }, ctrl *session.Controller) {
	select {
	case <-ctrl.Settled():
	case <-time.After(5 * time.Second):
		t.Fatal("duration analysis did not settle")
	}
}

func fixed(seconds int) analysis.DurationAnalyzer {
	return durationFunc(func(context.Context, *capture.Artifact) (analysis.Duration, error) {
		return analysis.Duration{PlayingTimeSeconds: seconds}, nil
	})
}

func failing(err error) analysis.DurationAnalyzer {
	return durationFunc(func(context.Context, *capture.Artifact) (analysis.Duration, error) {
		return analysis.Duration{}, err
	})
}

func recordTake(t *testing.T, h *harness, ticks int) session.Recorded {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx))
	h.src.push([]byte("take"))
	h.tick(ticks)
	require.NoError(t, h.ctrl.Stop(ctx))
	waitSettled(t, h.ctrl)
	rec, ok := h.ctrl.State().(session.Recorded)
	require.True(t, ok, "state = %s, want recorded", h.ctrl.State().Kind())
	return rec
}

// --- tests ---

func TestNewControllerIsIdle(t *testing.T) {
	h := newHarness(fixed(1), nil)
	assert.Equal(t, session.KindIdle, h.ctrl.State().Kind())
	assert.Equal(t, 0, h.ctrl.Elapsed())
}

func TestStopMovesThroughAnalyzingToRecorded(t *testing.T) {
	g := newGatedDurations()
	h := newHarness(g, nil)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx))
	assert.Equal(t, session.KindRecording, h.ctrl.State().Kind())
	h.tick(5)
	assert.Equal(t, 5, h.ctrl.Elapsed())

	require.NoError(t, h.ctrl.Stop(ctx))
	<-g.calls
	st, ok := h.ctrl.State().(session.AnalyzingAudio)
	require.True(t, ok, "state = %s, want analyzingAudio", h.ctrl.State().Kind())
	assert.Equal(t, 5, st.ElapsedSeconds)

	g.results <- durationResult{d: analysis.Duration{PlayingTimeSeconds: 42}}
	waitSettled(t, h.ctrl)

	rec, ok := h.ctrl.State().(session.Recorded)
	require.True(t, ok)
	require.NotNil(t, rec.PlayingSeconds)
	assert.Equal(t, 42, *rec.PlayingSeconds)
	assert.Equal(t, 5, rec.ElapsedSeconds)
	assert.NoError(t, rec.Warning)
	assert.Equal(t, "piano", rec.Metadata.Instrument)
	assert.Equal(t, 5, h.ctrl.Elapsed())
}

func TestSnapshotIsACopy(t *testing.T) {
	g := newGatedDurations()
	h := newHarness(g, nil)
	ctx := context.Background()

	assert.Equal(t, session.Snapshot{Kind: session.KindIdle}, h.ctrl.Snapshot())

	require.NoError(t, h.ctrl.Start(ctx))
	h.src.push([]byte("take"))
	h.tick(3)
	snap := h.ctrl.Snapshot()
	assert.Equal(t, session.KindRecording, snap.Kind)
	assert.Equal(t, 3, snap.ElapsedSeconds)
	assert.Equal(t, time.Date(2026, 3, 4, 19, 30, 0, 0, time.UTC), snap.StartedAt)

	require.NoError(t, h.ctrl.Stop(ctx))
	<-g.calls
	snap = h.ctrl.Snapshot()
	assert.Equal(t, session.KindAnalyzingAudio, snap.Kind)
	assert.Equal(t, 4, snap.AudioBytes)
	assert.Equal(t, "audio/webm", snap.ContentType)

	g.results <- durationResult{d: analysis.Duration{PlayingTimeSeconds: 2}}
	waitSettled(t, h.ctrl)
	require.NoError(t, h.ctrl.SetTitle("Scales"))
	recorded := h.ctrl.Snapshot()
	assert.Equal(t, session.KindRecorded, recorded.Kind)
	assert.Equal(t, 2, recorded.PlayingSeconds)
	assert.Equal(t, 3, recorded.ElapsedSeconds)
	assert.Empty(t, recorded.Warning)
	assert.Equal(t, "piano", recorded.Metadata.Instrument)

	require.NoError(t, h.ctrl.SetTitle("Arpeggios"))
	assert.Equal(t, "Scales", recorded.Metadata.Title)
	assert.Equal(t, "Arpeggios", h.ctrl.Snapshot().Metadata.Title)

	require.NoError(t, h.ctrl.Discard())
	assert.Equal(t, session.KindRecorded, recorded.Kind)
	assert.Equal(t, session.KindIdle, h.ctrl.Snapshot().Kind)
}

func TestFailedAnalysisFallsBackToElapsed(t *testing.T) {
	h := newHarness(failing(errors.New("model overloaded")), nil)
	rec := recordTake(t, h, 7)

	require.NotNil(t, rec.PlayingSeconds)
	assert.Equal(t, 7, *rec.PlayingSeconds)
	require.Error(t, rec.Warning)
	assert.Contains(t, rec.Warning.Error(), "model overloaded")
}

func TestNegativePlayingTimeFallsBack(t *testing.T) {
	h := newHarness(fixed(-4), nil)
	rec := recordTake(t, h, 3)
	assert.Equal(t, 3, *rec.PlayingSeconds)
	assert.ErrorIs(t, rec.Warning, analysis.ErrAnalysisFailed)
}

func TestImplausiblePlayingTimeFallsBack(t *testing.T) {
	h := newHarness(fixed(analysis.MaxPlayingSeconds+1), nil)
	rec := recordTake(t, h, 5)
	assert.Equal(t, 5, *rec.PlayingSeconds)
	assert.ErrorIs(t, rec.Warning, analysis.ErrAnalysisFailed)
}

func TestNilDurationAnalyzerFallsBack(t *testing.T) {
	h := newHarness(nil, nil)
	rec := recordTake(t, h, 2)
	assert.Equal(t, 2, *rec.PlayingSeconds)
	assert.Error(t, rec.Warning)
}

func TestStartDeniedStaysIdle(t *testing.T) {
	h := newHarness(fixed(1), nil)
	h.src.openErr = errors.New("no microphone")

	err := h.ctrl.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrPermissionDenied)
	assert.Equal(t, session.KindIdle, h.ctrl.State().Kind())
}

func TestInvalidTransitions(t *testing.T) {
	h := newHarness(fixed(1), nil)
	ctx := context.Background()

	err := h.ctrl.Stop(ctx)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
	var te *session.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, session.KindIdle, te.From)

	_, err = h.ctrl.Save(ctx)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
	assert.ErrorIs(t, h.ctrl.SetTitle("x"), session.ErrInvalidTransition)

	require.NoError(t, h.ctrl.Start(ctx))
	assert.ErrorIs(t, h.ctrl.Start(ctx), session.ErrInvalidTransition)
	_, err = h.ctrl.AnalyzeNotes(ctx)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
	require.NoError(t, h.ctrl.Discard())
}

func TestSaveWithEmptyTitleStaysRecorded(t *testing.T) {
	h := newHarness(fixed(30), nil)
	recordTake(t, h, 1)
	require.NoError(t, h.ctrl.SetTitle("   "))
	require.NoError(t, h.ctrl.SetInstrument(""))

	_, err := h.ctrl.Save(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrValidationFailed)
	var ve *session.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(session.FieldTitle))
	assert.True(t, ve.Has(session.FieldInstrument))
	assert.False(t, ve.Has(session.FieldDuration))

	assert.Equal(t, session.KindRecorded, h.ctrl.State().Kind())
	assert.Empty(t, h.sink.saved())
}

func TestSaveSubmitsRecordAndReturnsToIdle(t *testing.T) {
	h := newHarness(fixed(42), nil)
	recordTake(t, h, 5)
	require.NoError(t, h.ctrl.SetTitle(" Hanon no. 1 "))
	require.NoError(t, h.ctrl.SetNotes("even sixteenths at 92"))

	r, err := h.ctrl.Save(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "Hanon no. 1", r.Title)
	assert.Equal(t, "piano", r.Instrument)
	assert.Equal(t, 42, r.DurationSeconds)
	assert.Equal(t, "even sixteenths at 92", r.Notes)
	assert.Equal(t, []byte("take"), r.Audio.Data)
	assert.Equal(t, time.Date(2026, 3, 4, 19, 30, 0, 0, time.UTC), r.Timestamp)

	saved := h.sink.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, r.ID, saved[0].ID)

	assert.Equal(t, session.KindIdle, h.ctrl.State().Kind())
	assert.Equal(t, 0, h.ctrl.Elapsed())
	assert.False(t, h.cap.Active())
	assert.Nil(t, h.cap.Artifact())
}

func TestSinkFailureKeepsRecorded(t *testing.T) {
	h := newHarness(fixed(12), nil)
	recordTake(t, h, 2)
	require.NoError(t, h.ctrl.SetTitle("Scales"))
	h.sink.err = errors.New("disk full")

	_, err := h.ctrl.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	rec, ok := h.ctrl.State().(session.Recorded)
	require.True(t, ok)
	assert.Equal(t, "Scales", rec.Metadata.Title)
	assert.Equal(t, 12, *rec.PlayingSeconds)

	h.sink.err = nil
	_, err = h.ctrl.Save(context.Background())
	require.NoError(t, err)
	assert.Len(t, h.sink.saved(), 1)
}

func TestDiscardFromEveryActiveState(t *testing.T) {
	ctx := context.Background()

	t.Run("recording", func(t *testing.T) {
		h := newHarness(fixed(1), nil)
		require.NoError(t, h.ctrl.Start(ctx))
		h.tick(3)
		require.NoError(t, h.ctrl.Discard())
		assert.Equal(t, session.KindIdle, h.ctrl.State().Kind())
		assert.Equal(t, 0, h.cap.Elapsed())
		assert.False(t, h.cap.Active())
	})

	t.Run("analyzingAudio", func(t *testing.T) {
		g := newGatedDurations()
		h := newHarness(g, nil)
		require.NoError(t, h.ctrl.Start(ctx))
		require.NoError(t, h.ctrl.Stop(ctx))
		<-g.calls
		require.NoError(t, h.ctrl.Discard())
		assert.Equal(t, session.KindIdle, h.ctrl.State().Kind())

		// The late result must not resurrect the take.
		g.results <- durationResult{d: analysis.Duration{PlayingTimeSeconds: 99}}
		waitSettled(t, h.ctrl)
		assert.Equal(t, session.KindIdle, h.ctrl.State().Kind())
	})

	t.Run("recorded", func(t *testing.T) {
		h := newHarness(fixed(1), nil)
		recordTake(t, h, 1)
		require.NoError(t, h.ctrl.SetTitle("gone"))
		require.NoError(t, h.ctrl.Discard())
		assert.Equal(t, session.KindIdle, h.ctrl.State().Kind())
		assert.Nil(t, h.cap.Artifact())
	})

	t.Run("idle", func(t *testing.T) {
		h := newHarness(fixed(1), nil)
		assert.NoError(t, h.ctrl.Discard())
	})
}

func TestLateResultDroppedAfterNewTake(t *testing.T) {
	g := newGatedDurations()
	h := newHarness(g, nil)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx))
	require.NoError(t, h.ctrl.Stop(ctx))
	<-g.calls
	require.NoError(t, h.ctrl.Discard())
	require.NoError(t, h.ctrl.Start(ctx))

	g.results <- durationResult{d: analysis.Duration{PlayingTimeSeconds: 99}}
	// Give the stale goroutine a chance to run.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, session.KindRecording, h.ctrl.State().Kind())
	require.NoError(t, h.ctrl.Discard())
}

func TestAnalyzeNotesFillsTitleAndSummary(t *testing.T) {
	h := newHarness(fixed(10), &analysis.Mock{})
	recordTake(t, h, 1)
	require.NoError(t, h.ctrl.SetNotes("arpeggios in E major"))

	n, err := h.ctrl.AnalyzeNotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Practice log: arpeggios in E major...", n.Title)

	rec := h.ctrl.State().(session.Recorded)
	assert.Equal(t, n.Title, rec.Metadata.Title)
	assert.Equal(t, analysis.MockSummary, rec.Metadata.Summary)
	assert.Equal(t, "arpeggios in E major", rec.Metadata.Notes)
}

func TestAnalyzeNotesRequiresNotes(t *testing.T) {
	h := newHarness(fixed(10), &analysis.Mock{})
	recordTake(t, h, 1)

	_, err := h.ctrl.AnalyzeNotes(context.Background())
	var ve *session.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(session.FieldNotes))
}

func TestAnalyzeNotesFailureLeavesMetadata(t *testing.T) {
	notes := notesFunc(func(context.Context, string) (analysis.Notes, error) {
		return analysis.Notes{}, errors.New("rate limited")
	})
	h := newHarness(fixed(10), notes)
	recordTake(t, h, 1)
	require.NoError(t, h.ctrl.SetTitle("mine"))
	require.NoError(t, h.ctrl.SetNotes("etudes"))

	_, err := h.ctrl.AnalyzeNotes(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrAnalysisFailed)
	assert.Equal(t, "mine", h.ctrl.State().(session.Recorded).Metadata.Title)
}

func TestAnalyzeNotesRejectsConcurrentCall(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	notes := notesFunc(func(ctx context.Context, s string) (analysis.Notes, error) {
		close(entered)
		<-release
		return analysis.Notes{Title: "t", Summary: "s"}, nil
	})
	h := newHarness(fixed(10), notes)
	recordTake(t, h, 1)
	require.NoError(t, h.ctrl.SetNotes("long tones"))

	errc := make(chan error, 1)
	go func() {
		_, err := h.ctrl.AnalyzeNotes(context.Background())
		errc <- err
	}()
	<-entered

	_, err := h.ctrl.AnalyzeNotes(context.Background())
	assert.ErrorIs(t, err, session.ErrBusy)

	close(release)
	require.NoError(t, <-errc)
}

func TestAnalyzeNotesAfterDiscardIsDropped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	notes := notesFunc(func(ctx context.Context, s string) (analysis.Notes, error) {
		close(entered)
		<-release
		return analysis.Notes{Title: "t", Summary: "s"}, nil
	})
	h := newHarness(fixed(10), notes)
	recordTake(t, h, 1)
	require.NoError(t, h.ctrl.SetNotes("long tones"))

	errc := make(chan error, 1)
	go func() {
		_, err := h.ctrl.AnalyzeNotes(context.Background())
		errc <- err
	}()
	<-entered
	require.NoError(t, h.ctrl.Discard())
	close(release)

	assert.ErrorIs(t, <-errc, session.ErrSessionChanged)
	assert.Equal(t, session.KindIdle, h.ctrl.State().Kind())
}

// Feature: encore, Property 3: recorded playing time is the analyzed value or, on failure, the elapsed seconds
func TestRecordedDurationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ticks := rapid.IntRange(0, 30).Draw(rt, "ticks")
		analyzed := rapid.IntRange(0, 3600).Draw(rt, "analyzed")
		fails := rapid.Bool().Draw(rt, "fails")

		var d analysis.DurationAnalyzer = fixed(analyzed)
		if fails {
			d = failing(analysis.ErrAnalysisFailed)
		}
		h := newHarness(d, nil)
		ctx := context.Background()

		if err := h.ctrl.Start(ctx); err != nil {
			rt.Fatalf("Start: %v", err)
		}
		h.tick(ticks)
		if err := h.ctrl.Stop(ctx); err != nil {
			rt.Fatalf("Stop: %v", err)
		}
		waitSettled(rt, h.ctrl)

		rec, ok := h.ctrl.State().(session.Recorded)
		if !ok {
			rt.Fatalf("state = %s, want recorded", h.ctrl.State().Kind())
		}
		want := analyzed
		if fails {
			want = ticks
		}
		if *rec.PlayingSeconds != want {
			rt.Errorf("playing = %d, want %d", *rec.PlayingSeconds, want)
		}
		if (rec.Warning != nil) != fails {
			rt.Errorf("warning = %v, fails = %v", rec.Warning, fails)
		}
		if rec.ElapsedSeconds != ticks {
			rt.Errorf("elapsed = %d, want %d", rec.ElapsedSeconds, ticks)
		}
	})
}

// Feature: encore, Property 4: any event sequence leaves the controller in a state consistent with its data
func TestEventSequenceProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(fixed(20), &analysis.Mock{})
		ctx := context.Background()
		saved := 0

		steps := rapid.IntRange(1, 25).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 5).Draw(rt, "event") {
			case 0:
				_ = h.ctrl.Start(ctx)
			case 1:
				if h.ctrl.Stop(ctx) == nil {
					waitSettled(rt, h.ctrl)
				}
			case 2:
				_ = h.ctrl.SetTitle(rapid.StringMatching(`[a-z ]{0,8}`).Draw(rt, "title"))
			case 3:
				if _, err := h.ctrl.Save(ctx); err == nil {
					saved++
				}
			case 4:
				_ = h.ctrl.Discard()
			case 5:
				if h.ctrl.State().Kind() == session.KindRecording {
					h.tick(1)
				}
			}

			switch st := h.ctrl.State().(type) {
			case session.Idle:
				if h.cap.Active() || h.cap.Artifact() != nil {
					rt.Fatalf("idle with live capture")
				}
			case session.Recording:
				if !h.cap.Active() {
					rt.Fatalf("recording without active capture")
				}
			case session.Recorded:
				if st.Artifact == nil || st.PlayingSeconds == nil {
					rt.Fatalf("recorded without artifact or duration")
				}
			default:
				rt.Fatalf("unexpected state %s between events", st.Kind())
			}
		}
		if got := len(h.sink.saved()); got != saved {
			rt.Fatalf("sink has %d records, %d saves succeeded", got, saved)
		}
	})
}
