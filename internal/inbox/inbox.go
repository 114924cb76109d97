// Package inbox imports weekly reports dropped into a folder, e.g. a shared
// folder a bandmate or coach exports into.
package inbox

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fakeyudi/encore/internal/journal"
	"github.com/fakeyudi/encore/internal/report"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// IgnoreFile lists extra glob patterns, one per line, inside the inbox.
const IgnoreFile = ".encoreignore"

// Importer stores report entries, skipping IDs it already has.
// *journal.Store implements it.
type Importer interface {
	Import(ctx context.Context, entries []journal.Entry) (int, error)
}

// Result summarizes one scan.
type Result struct {
	Files    int      // report files imported
	Added    int      // entries new to the journal
	Warnings []string // non-fatal issues encountered
}

// Inbox imports report files found in Dir.
type Inbox struct {
	Dir            string
	Store          Importer
	IgnorePatterns []string
	Logger         *zap.Logger
}

func (ib *Inbox) log() *zap.Logger {
	if ib.Logger == nil {
		return zap.NewNop()
	}
	return ib.Logger
}

// Scan imports every report file currently in Dir. Unreadable or malformed
// files are reported as warnings and skipped.
func (ib *Inbox) Scan(ctx context.Context) (Result, error) {
	var res Result
	patterns, err := ib.loadIgnorePatterns()
	if err != nil {
		// Non-fatal: continue with configured patterns only.
		res.Warnings = append(res.Warnings, "failed to load ignore patterns: "+err.Error())
	}

	entries, err := os.ReadDir(ib.Dir)
	if err != nil {
		return res, err
	}
	for _, d := range entries {
		if d.IsDir() {
			continue
		}
		path := filepath.Join(ib.Dir, d.Name())
		if !ib.isReport(path, patterns) {
			continue
		}
		added, err := ib.importFile(ctx, path)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		res.Files++
		res.Added += added
	}
	return res, nil
}

// Watch imports report files as they are created or rewritten in Dir until
// ctx is cancelled. onImport, if set, is called after each file.
func (ib *Inbox) Watch(ctx context.Context, onImport func(path string, added int, err error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(ib.Dir); err != nil {
		return err
	}
	patterns, _ := ib.loadIgnorePatterns()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Base(event.Name) == IgnoreFile {
				patterns, _ = ib.loadIgnorePatterns()
				continue
			}
			if !ib.isReport(event.Name, patterns) {
				continue
			}
			// A half-written file fails to parse; the next write event retries.
			added, err := ib.importFile(ctx, event.Name)
			if onImport != nil {
				onImport(event.Name, added, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
			ib.log().Warn("inbox watcher error", zap.Error(err))
		}
	}
}

func (ib *Inbox) importFile(ctx context.Context, path string) (int, error) {
	r, err := report.ReadFile(path)
	if err != nil {
		return 0, err
	}
	added, err := ib.Store.Import(ctx, r.Records)
	if err != nil {
		return 0, err
	}
	ib.log().Info("inbox report imported", zap.String("path", path), zap.Int("added", added))
	return added, nil
}

// isReport reports whether path is a report file not matched by any ignore
// pattern. Hidden files, including in-progress report writes, never match.
func (ib *Inbox) isReport(path string, patterns []string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".md", ".json":
	default:
		return false
	}
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	return true
}

// loadIgnorePatterns merges the configured patterns with those from the
// inbox's ignore file.
func (ib *Inbox) loadIgnorePatterns() ([]string, error) {
	patterns := make([]string, len(ib.IgnorePatterns))
	copy(patterns, ib.IgnorePatterns)

	extra, err := readPatternFile(filepath.Join(ib.Dir, IgnoreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return patterns, nil
		}
		return patterns, err
	}
	return append(patterns, extra...), nil
}

// readPatternFile reads a gitignore-style file and returns non-empty, non-comment lines.
func readPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}
