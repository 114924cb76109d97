// Package journal persists saved practice records and derives the weekly
// calendar and peer comparison views from them.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/fakeyudi/encore/internal/capture"
	"github.com/fakeyudi/encore/internal/session"
)

// ErrNotFound is returned when no record or audio exists for an ID.
var ErrNotFound = errors.New("record not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id                 TEXT PRIMARY KEY,
	recorded_at        INTEGER NOT NULL,
	title              TEXT NOT NULL,
	instrument         TEXT NOT NULL,
	duration_seconds   INTEGER NOT NULL,
	notes              TEXT NOT NULL DEFAULT '',
	summary            TEXT NOT NULL DEFAULT '',
	audio_content_type TEXT NOT NULL DEFAULT '',
	audio_size         INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS records_recorded_at ON records (recorded_at);
`

// Entry is a stored record plus what is known about its audio.
type Entry struct {
	session.Record
	AudioContentType string `json:"audio_content_type,omitempty"`
	AudioSize        int    `json:"audio_size,omitempty"`
}

// Query filters List. Zero fields match everything; To is exclusive.
type Query struct {
	From       time.Time
	To         time.Time
	Instrument string
	Limit      int
}

// Options configures Open.
type Options struct {
	// Path is the SQLite file, or MemoryPath.
	Path string
	// AudioDir enables the audio store at this directory.
	AudioDir string
	// InMemoryAudio enables an in-memory audio store; AudioDir is ignored.
	InMemoryAudio bool
	// MaxAudioBytes caps the audio kept per take; larger takes are saved
	// without audio. Zero means DefaultMaxAudioBytes.
	MaxAudioBytes int
	Logger        *zap.Logger
}

// Store is the journal. It implements session.Sink.
type Store struct {
	db       *sql.DB
	audio    *AudioStore
	maxAudio int
	log      *zap.Logger
}

var _ session.Sink = (*Store)(nil)

// Open opens the record database and, when configured, the audio store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var db *sql.DB
	var audio *AudioStore

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		db, err = openDB(gctx, opts.Path)
		return err
	})
	if opts.AudioDir != "" || opts.InMemoryAudio {
		g.Go(func() error {
			var err error
			audio, err = OpenAudio(opts.AudioDir, opts.InMemoryAudio)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if db != nil {
			db.Close()
		}
		if audio != nil {
			audio.Close()
		}
		return nil, err
	}

	log.Debug("journal opened", zap.String("path", opts.Path), zap.Bool("audio", audio != nil))
	maxAudio := opts.MaxAudioBytes
	if maxAudio <= 0 {
		maxAudio = DefaultMaxAudioBytes
	}
	return &Store{db: db, audio: audio, maxAudio: maxAudio, log: log}, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("open database: no path configured")
	}
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps an in-memory database shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// Close closes the database and the audio store.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.audio != nil {
		err = errors.Join(err, s.audio.Close())
	}
	return err
}

// HasAudio reports whether takes are kept.
func (s *Store) HasAudio() bool { return s.audio != nil }

// KeepsAudio reports whether Submit would keep a. Takes over the size limit
// are saved without their audio.
func (s *Store) KeepsAudio(a *capture.Artifact) bool {
	return s.audio != nil && a != nil && a.Size() <= s.maxAudio
}

// Submit stores a saved take. The audio is kept only when the audio store is
// enabled.
func (s *Store) Submit(ctx context.Context, r session.Record) error {
	e := Entry{Record: r}
	keep := s.KeepsAudio(r.Audio)
	if s.audio != nil && r.Audio != nil && !keep {
		s.log.Warn("take too large to keep its audio",
			zap.String("id", r.ID), zap.Int("bytes", r.Audio.Size()), zap.Int("limit", s.maxAudio))
	}
	if keep {
		e.AudioContentType = r.Audio.ContentType
		e.AudioSize = r.Audio.Size()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := insert(ctx, tx, "INSERT", e); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if keep {
		if err := s.audio.Put(r.ID, r.Audio.Data); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		if keep {
			_ = s.audio.Delete(r.ID)
		}
		return fmt.Errorf("commit: %w", err)
	}

	s.log.Info("record stored", zap.String("id", r.ID), zap.Bool("audio", keep))
	return nil
}

// Import stores entries whose IDs are not yet present and returns how many
// were added. Imported entries never carry audio.
func (s *Store) Import(ctx context.Context, entries []Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, e := range entries {
		if e.ID == "" {
			return 0, errors.New("import: record without id")
		}
		e.AudioContentType, e.AudioSize = "", 0
		n, err := insert(ctx, tx, "INSERT OR IGNORE", e)
		if err != nil {
			return 0, fmt.Errorf("import %s: %w", e.ID, err)
		}
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.log.Info("records imported", zap.Int("added", added), zap.Int("total", len(entries)))
	return added, nil
}

func insert(ctx context.Context, tx *sql.Tx, verb string, e Entry) (int64, error) {
	res, err := tx.ExecContext(ctx, verb+` INTO records
		(id, recorded_at, title, instrument, duration_seconds, notes, summary, audio_content_type, audio_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixMilli(), e.Title, e.Instrument, e.DurationSeconds,
		e.Notes, e.Summary, e.AudioContentType, e.AudioSize)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectColumns = `SELECT id, recorded_at, title, instrument, duration_seconds, notes, summary, audio_content_type, audio_size FROM records`

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Entry, error) {
	var where []string
	var args []any
	if !q.From.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, q.From.UnixMilli())
	}
	if !q.To.IsZero() {
		where = append(where, "recorded_at < ?")
		args = append(args, q.To.UnixMilli())
	}
	if q.Instrument != "" {
		where = append(where, "instrument = ? COLLATE NOCASE")
		args = append(args, q.Instrument)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at DESC, id ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (Entry, error) {
	var e Entry
	var ms int64
	if err := sc.Scan(&e.ID, &ms, &e.Title, &e.Instrument, &e.DurationSeconds,
		&e.Notes, &e.Summary, &e.AudioContentType, &e.AudioSize); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan record: %w", err)
	}
	e.Timestamp = time.UnixMilli(ms)
	return e, nil
}

// Delete removes the entry with id and its audio.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.audio != nil {
		if err := s.audio.Delete(id); err != nil && !errors.Is(err, ErrNotFound) {
			s.log.Warn("deleting audio failed", zap.String("id", id), zap.Error(err))
		}
	}
	s.log.Info("record deleted", zap.String("id", id))
	return nil
}

// Reset removes every record and all stored audio.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("reset records: %w", err)
	}
	if s.audio != nil {
		if err := s.audio.DropAll(); err != nil {
			return err
		}
	}
	s.log.Info("journal reset")
	return nil
}

// Audio returns the stored take for id.
func (s *Store) Audio(ctx context.Context, id string) (*capture.Artifact, error) {
	if s.audio == nil {
		return nil, fmt.Errorf("%w: audio is not kept", ErrNotFound)
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.AudioSize == 0 {
		return nil, fmt.Errorf("%w: no audio for %s", ErrNotFound, id)
	}
	data, err := s.audio.Get(id)
	if err != nil {
		return nil, err
	}
	return &capture.Artifact{Data: data, ContentType: e.AudioContentType}, nil
}
