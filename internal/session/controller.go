// Package session drives a practice take from the first press of record to a
// saved journal record. Controller is the state machine
//
//	idle → recording → analyzingAudio → recorded → saving → idle
//
// with discard returning to idle from recording, analyzingAudio or recorded.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fakeyudi/encore/internal/analysis"
	"github.com/fakeyudi/encore/internal/capture"
)

// Recorder is the capture component the controller drives. *capture.Capture
// implements it.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (*capture.Artifact, error)
	Reset() error
	Elapsed() int
}

// Config wires a Controller to its collaborators.
type Config struct {
	Recorder  Recorder
	Durations analysis.DurationAnalyzer
	Notes     analysis.NotesAnalyzer
	Sink      Sink
	Logger    *zap.Logger

	// DefaultInstrument pre-fills the instrument of every recorded take.
	DefaultInstrument string

	Now   func() time.Time
	NewID func() string
}

// Controller serializes every transition; collaborator calls run without the
// lock and their results are dropped if the take was discarded meanwhile.
type Controller struct {
	recorder  Recorder
	durations analysis.DurationAnalyzer
	notes     analysis.NotesAnalyzer
	sink      Sink
	log       *zap.Logger
	instr     string
	now       func() time.Time
	newID     func() string

	mu        sync.Mutex
	state     State
	gen       uint64 // bumped whenever a take begins or ends
	settled   chan struct{}
	notesBusy bool
}

// New returns a Controller in the idle state.
func New(cfg Config) *Controller {
	c := &Controller{
		recorder:  cfg.Recorder,
		durations: cfg.Durations,
		notes:     cfg.Notes,
		sink:      cfg.Sink,
		log:       cfg.Logger,
		instr:     cfg.DefaultInstrument,
		now:       cfg.Now,
		newID:     cfg.NewID,
		state:     Idle{},
		settled:   make(chan struct{}),
	}
	close(c.settled)
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// State returns the current state. The artifact and playing time it carries
// are shared with the controller; renderers should use Snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Kind: c.state.Kind()}
	switch s := c.state.(type) {
	case Recording:
		snap.StartedAt = s.StartedAt
		snap.ElapsedSeconds = c.recorder.Elapsed()
	case AnalyzingAudio:
		snap.ElapsedSeconds = s.ElapsedSeconds
		snap.setAudio(s.Artifact)
	case Recorded:
		snap.setRecorded(s)
	case Saving:
		snap.setRecorded(s.recorded)
		snap.Metadata = Metadata{
			Title:      s.Record.Title,
			Instrument: s.Record.Instrument,
			Notes:      s.Record.Notes,
			Summary:    s.Record.Summary,
		}
	}
	return snap
}

// Elapsed returns the seconds captured so far in the current take.
func (c *Controller) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch s := c.state.(type) {
	case Recording:
		return c.recorder.Elapsed()
	case AnalyzingAudio:
		return s.ElapsedSeconds
	case Recorded:
		return s.ElapsedSeconds
	case Saving:
		return s.recorded.ElapsedSeconds
	}
	return 0
}

// Settled returns a channel that is closed once no duration analysis is
// outstanding.
func (c *Controller) Settled() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}

// Start begins a take. If the audio input is refused the controller stays
// idle and the capture error is returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.(Idle); !ok {
		return c.invalid("start")
	}
	if err := c.recorder.Start(ctx); err != nil {
		c.log.Warn("capture start failed", zap.Error(err))
		return fmt.Errorf("starting capture: %w", err)
	}
	c.gen++
	c.state = Recording{StartedAt: c.now()}
	c.log.Info("recording started")
	return nil
}

// Stop ends the capture and hands the artifact to the duration analyzer. The
// controller moves to analyzingAudio immediately; the analysis result moves
// it on to recorded. ctx values reach the analyzer but its cancellation does
// not.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.(Recording); !ok {
		return c.invalid("stop")
	}

	artifact, err := c.recorder.Stop()
	elapsed := c.recorder.Elapsed()
	if err != nil {
		c.resetRecorder()
		c.gen++
		c.state = Idle{}
		return fmt.Errorf("stopping capture: %w", err)
	}

	c.state = AnalyzingAudio{Artifact: artifact, ElapsedSeconds: elapsed}
	done := make(chan struct{})
	c.settled = done
	c.log.Info("recording stopped",
		zap.Int("elapsed_seconds", elapsed),
		zap.Int("bytes", artifact.Size()),
		zap.String("content_type", artifact.ContentType))

	go c.analyzeDuration(context.WithoutCancel(ctx), c.gen, artifact, elapsed, done)
	return nil
}

func (c *Controller) analyzeDuration(ctx context.Context, gen uint64, a *capture.Artifact, elapsed int, done chan struct{}) {
	defer close(done)

	var res analysis.Duration
	var err error
	if c.durations == nil {
		err = fmt.Errorf("%w: no duration analyzer configured", analysis.ErrAnalysisFailed)
	} else {
		res, err = c.durations.AnalyzeDuration(ctx, a)
	}
	switch {
	case err != nil:
	case res.PlayingTimeSeconds < 0:
		err = fmt.Errorf("%w: negative playing time %d", analysis.ErrAnalysisFailed, res.PlayingTimeSeconds)
	case res.PlayingTimeSeconds > analysis.MaxPlayingSeconds:
		err = fmt.Errorf("%w: implausible playing time %d", analysis.ErrAnalysisFailed, res.PlayingTimeSeconds)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.(AnalyzingAudio); !ok || gen != c.gen {
		c.log.Debug("dropping duration analysis for discarded take")
		return
	}

	playing := res.PlayingTimeSeconds
	var warning error
	if err != nil {
		playing = elapsed
		warning = fmt.Errorf("playing time analysis failed, using total recording time: %w", err)
		c.log.Warn("duration analysis failed", zap.Error(err), zap.Int("fallback_seconds", elapsed))
	} else {
		c.log.Info("duration analyzed", zap.Int("playing_seconds", playing), zap.Int("elapsed_seconds", elapsed))
	}

	c.state = Recorded{
		Artifact:       a,
		ElapsedSeconds: elapsed,
		PlayingSeconds: &playing,
		Warning:        warning,
		Metadata:       Metadata{Instrument: c.instr},
	}
}

// SetTitle replaces the title of a recorded take.
func (c *Controller) SetTitle(title string) error {
	return c.edit("edit title", func(m *Metadata) { m.Title = title })
}

// SetInstrument replaces the instrument of a recorded take.
func (c *Controller) SetInstrument(instrument string) error {
	return c.edit("edit instrument", func(m *Metadata) { m.Instrument = instrument })
}

// SetNotes replaces the notes of a recorded take.
func (c *Controller) SetNotes(notes string) error {
	return c.edit("edit notes", func(m *Metadata) { m.Notes = notes })
}

func (c *Controller) edit(event string, fn func(*Metadata)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.state.(Recorded)
	if !ok {
		return c.invalid(event)
	}
	fn(&rec.Metadata)
	c.state = rec
	return nil
}

// AnalyzeNotes asks the notes analyzer for a title and summary and applies
// them to the recorded take. Failures leave the take unchanged and match
// analysis.ErrAnalysisFailed.
func (c *Controller) AnalyzeNotes(ctx context.Context) (analysis.Notes, error) {
	c.mu.Lock()
	rec, ok := c.state.(Recorded)
	if !ok {
		defer c.mu.Unlock()
		return analysis.Notes{}, c.invalid("analyze notes")
	}
	notes := strings.TrimSpace(rec.Metadata.Notes)
	if notes == "" {
		c.mu.Unlock()
		return analysis.Notes{}, &ValidationError{Fields: []string{FieldNotes}}
	}
	if c.notesBusy {
		c.mu.Unlock()
		return analysis.Notes{}, ErrBusy
	}
	c.notesBusy = true
	gen := c.gen
	c.mu.Unlock()

	var res analysis.Notes
	var err error
	if c.notes == nil {
		err = fmt.Errorf("%w: no notes analyzer configured", analysis.ErrAnalysisFailed)
	} else {
		res, err = c.notes.AnalyzeNotes(ctx, notes)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notesBusy = false

	if err != nil {
		if !errors.Is(err, analysis.ErrAnalysisFailed) {
			err = fmt.Errorf("%w: %w", analysis.ErrAnalysisFailed, err)
		}
		c.log.Warn("notes analysis failed", zap.Error(err))
		return analysis.Notes{}, err
	}

	rec, ok = c.state.(Recorded)
	if !ok || gen != c.gen {
		return analysis.Notes{}, ErrSessionChanged
	}
	rec.Metadata.Title = res.Title
	rec.Metadata.Summary = res.Summary
	c.state = rec
	return res, nil
}

// Discard abandons the current take from recording, analyzingAudio or
// recorded and returns to idle. It is a no-op when idle.
func (c *Controller) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.(type) {
	case Idle:
		return nil
	case Saving:
		return c.invalid("discard")
	}
	c.resetRecorder()
	c.gen++
	c.state = Idle{}
	c.log.Info("take discarded")
	return nil
}

// Save validates the recorded take and submits it to the sink. On a
// validation error the controller stays in recorded. If the sink fails the
// take is restored to recorded so nothing is lost.
func (c *Controller) Save(ctx context.Context) (Record, error) {
	c.mu.Lock()
	rec, ok := c.state.(Recorded)
	if !ok {
		defer c.mu.Unlock()
		return Record{}, c.invalid("save")
	}
	if err := validate(rec); err != nil {
		c.mu.Unlock()
		return Record{}, err
	}

	r := Record{
		ID:              c.newID(),
		Timestamp:       c.now(),
		Title:           strings.TrimSpace(rec.Metadata.Title),
		Instrument:      strings.TrimSpace(rec.Metadata.Instrument),
		DurationSeconds: *rec.PlayingSeconds,
		Notes:           rec.Metadata.Notes,
		Summary:         rec.Metadata.Summary,
		Audio:           rec.Artifact,
	}
	c.state = Saving{Record: r, recorded: rec}
	c.mu.Unlock()

	var err error
	if c.sink == nil {
		err = errors.New("no record sink configured")
	} else {
		err = c.sink.Submit(ctx, r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = rec
		c.log.Error("saving record failed", zap.String("id", r.ID), zap.Error(err))
		return Record{}, fmt.Errorf("saving record: %w", err)
	}

	c.resetRecorder()
	c.gen++
	c.state = Idle{}
	c.log.Info("record saved", zap.String("id", r.ID), zap.Int("duration_seconds", r.DurationSeconds))
	return r, nil
}

func validate(rec Recorded) error {
	var missing []string
	if strings.TrimSpace(rec.Metadata.Title) == "" {
		missing = append(missing, FieldTitle)
	}
	if strings.TrimSpace(rec.Metadata.Instrument) == "" {
		missing = append(missing, FieldInstrument)
	}
	if rec.Artifact == nil {
		missing = append(missing, FieldAudio)
	}
	if rec.PlayingSeconds == nil {
		missing = append(missing, FieldDuration)
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// resetRecorder must be called with mu held.
func (c *Controller) resetRecorder() {
	if err := c.recorder.Reset(); err != nil {
		c.log.Warn("capture reset failed", zap.Error(err))
	}
}

// invalid must be called with mu held.
func (c *Controller) invalid(event string) error {
	return &TransitionError{From: c.state.Kind(), Event: event}
}
