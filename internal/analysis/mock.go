package analysis

import (
	"context"
	"time"

	"github.com/fakeyudi/encore/internal/capture"
)

// MockSummary is the fixed summary returned by Mock.
const MockSummary = "You had a solid practice session. Keep up the good work!"

// Mock answers without calling a model. Playing time is estimated from the
// artifact size (one second per 10000 bytes, at least 10 seconds).
type Mock struct {
	// Latency simulates a network round trip.
	Latency time.Duration
}

func (m *Mock) AnalyzeDuration(ctx context.Context, a *capture.Artifact) (Duration, error) {
	if err := m.wait(ctx); err != nil {
		return Duration{}, fail("mock", "duration", err)
	}
	secs := a.Size() / 10000
	if secs < 10 {
		secs = 10
	}
	return Duration{PlayingTimeSeconds: secs}, nil
}

func (m *Mock) AnalyzeNotes(ctx context.Context, notes string) (Notes, error) {
	if err := m.wait(ctx); err != nil {
		return Notes{}, fail("mock", "notes", err)
	}
	prefix := []rune(notes)
	if len(prefix) > 20 {
		prefix = prefix[:20]
	}
	return Notes{
		Title:   "Practice log: " + string(prefix) + "...",
		Summary: MockSummary,
	}, nil
}

func (m *Mock) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
