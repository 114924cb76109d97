// Package analysis estimates the true playing time of a take and turns a
// player's practice notes into a title and summary. Providers are thin
// request/response adapters over hosted generative models; Mock reproduces
// the placeholder behaviour for offline use.
package analysis

import (
	"context"
	"errors"

	"github.com/fakeyudi/encore/internal/capture"
)

// ErrAnalysisFailed matches every error returned by an analyzer.
var ErrAnalysisFailed = errors.New("analysis failed")

// Error wraps a provider failure. errors.Is(err, ErrAnalysisFailed) holds for
// every *Error.
type Error struct {
	Op       string // "duration" or "notes"
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return "analysis failed: " + e.Provider + " " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrAnalysisFailed }

// Duration is the duration analyzer's answer.
type Duration struct {
	PlayingTimeSeconds int `json:"playingTimeInSeconds"`
}

// Notes is the notes analyzer's answer.
type Notes struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// DurationAnalyzer estimates how many seconds of an artifact contain actual
// playing.
type DurationAnalyzer interface {
	AnalyzeDuration(ctx context.Context, a *capture.Artifact) (Duration, error)
}

// NotesAnalyzer suggests a title and an encouraging summary for notes.
type NotesAnalyzer interface {
	AnalyzeNotes(ctx context.Context, notes string) (Notes, error)
}

func fail(provider, op string, err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Op: op, Provider: provider, Err: err}
}
