package session

import (
	"context"
	"time"

	"github.com/fakeyudi/encore/internal/capture"
)

// Record is a completed practice take as handed to the Sink.
type Record struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Title           string    `json:"title"`
	Instrument      string    `json:"instrument"`
	DurationSeconds int       `json:"duration_seconds"`
	Notes           string    `json:"notes"`
	Summary         string    `json:"summary"`

	// Audio is the take itself. Sinks may keep or drop it.
	Audio *capture.Artifact `json:"-"`
}

// Sink persists completed records.
type Sink interface {
	Submit(ctx context.Context, r Record) error
}
