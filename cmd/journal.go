package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fakeyudi/encore/internal/capture"
	"github.com/fakeyudi/encore/internal/journal"
	"github.com/fakeyudi/encore/internal/report"
)

// now is the clock used for week selection; tests replace it.
var now = time.Now

// openJournal opens the journal under the resolved data directory.
func openJournal(ctx context.Context) (*journal.Store, error) {
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	opts := journal.Options{
		Path:   filepath.Join(dir, "journal.db"),
		Logger: logger,
	}
	if cfg.KeepsAudio() {
		opts.AudioDir = filepath.Join(dir, "audio")
	}
	return journal.Open(ctx, opts)
}

// keepUnsaved writes the audio of a take the journal refused to the unsaved
// folder under the data directory and returns its path.
func keepUnsaved(a *capture.Artifact) (string, error) {
	if a == nil {
		return "", errors.New("no audio recorded")
	}
	base, err := cfg.ResolveDataDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "unsaved")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create unsaved dir: %w", err)
	}
	f, err := os.CreateTemp(dir, now().Format("encore-20060102-150405-*")+audioExt(a.ContentType))
	if err != nil {
		return "", fmt.Errorf("keep unsaved take: %w", err)
	}
	if _, err := f.Write(a.Data); err != nil {
		f.Close()
		return "", fmt.Errorf("keep unsaved take: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("keep unsaved take: %w", err)
	}
	return f.Name(), nil
}

// weekStart returns the start of the current week shifted by offset weeks.
func weekStart(offset int) time.Time {
	return journal.ShiftWeeks(journal.WeekStart(now()), offset)
}

// buildWeekReport loads the week starting at ws and assembles its report.
func buildWeekReport(ctx context.Context, store *journal.Store, ws time.Time) (*report.Report, error) {
	entries, err := store.List(ctx, journal.Query{From: ws, To: journal.ShiftWeeks(ws, 1)})
	if err != nil {
		return nil, err
	}
	meta := report.Meta{GeneratedAt: now()}
	if activeProfile != nil {
		meta.Author = activeProfile.Nickname
		meta.Instrument = activeProfile.Describe()
	}
	return report.Build(entries, ws, cfg.PeerAverages, meta)
}
