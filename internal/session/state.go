package session

import (
	"time"

	"github.com/fakeyudi/encore/internal/capture"
)

// Kind names a controller state.
type Kind string

const (
	KindIdle           Kind = "idle"
	KindRecording      Kind = "recording"
	KindAnalyzingAudio Kind = "analyzingAudio"
	KindRecorded       Kind = "recorded"
	KindSaving         Kind = "saving"
)

// State is one of Idle, Recording, AnalyzingAudio, Recorded or Saving. Each
// carries only the data that is valid in that state.
type State interface {
	Kind() Kind
	isState()
}

// Idle: no take in progress.
type Idle struct{}

// Recording: the capture is running.
type Recording struct {
	StartedAt time.Time
}

// AnalyzingAudio: capture stopped, waiting for the duration analyzer.
type AnalyzingAudio struct {
	Artifact       *capture.Artifact
	ElapsedSeconds int
}

// Recorded: the take is ready for metadata and saving.
type Recorded struct {
	Artifact       *capture.Artifact
	ElapsedSeconds int
	// PlayingSeconds is the analyzed playing time, or ElapsedSeconds when
	// analysis failed.
	PlayingSeconds *int
	// Warning is set when the playing time fell back to ElapsedSeconds.
	Warning  error
	Metadata Metadata
}

// Saving: the record has been handed to the sink.
type Saving struct {
	Record Record

	recorded Recorded
}

// Snapshot is a point-in-time view of the controller for renderers. It is a
// plain value and shares nothing with the controller.
type Snapshot struct {
	Kind Kind
	// StartedAt is set while recording.
	StartedAt      time.Time
	ElapsedSeconds int
	// PlayingSeconds is set once the take is recorded.
	PlayingSeconds int
	AudioBytes     int
	ContentType    string
	Warning        string
	Metadata       Metadata
}

func (s *Snapshot) setRecorded(r Recorded) {
	s.ElapsedSeconds = r.ElapsedSeconds
	s.PlayingSeconds = r.ElapsedSeconds
	if r.PlayingSeconds != nil {
		s.PlayingSeconds = *r.PlayingSeconds
	}
	if r.Warning != nil {
		s.Warning = r.Warning.Error()
	}
	s.Metadata = r.Metadata
	s.setAudio(r.Artifact)
}

func (s *Snapshot) setAudio(a *capture.Artifact) {
	if a != nil {
		s.AudioBytes = a.Size()
		s.ContentType = a.ContentType
	}
}

// Metadata is the user-editable part of a take.
type Metadata struct {
	Title      string `json:"title"`
	Instrument string `json:"instrument"`
	Notes      string `json:"notes"`
	Summary    string `json:"summary"`
}

func (Idle) Kind() Kind           { return KindIdle }
func (Recording) Kind() Kind      { return KindRecording }
func (AnalyzingAudio) Kind() Kind { return KindAnalyzingAudio }
func (Recorded) Kind() Kind       { return KindRecorded }
func (Saving) Kind() Kind         { return KindSaving }

func (Idle) isState()           {}
func (Recording) isState()      {}
func (AnalyzingAudio) isState() {}
func (Recorded) isState()       {}
func (Saving) isState()         {}
