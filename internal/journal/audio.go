package journal

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"
)

// DefaultMaxAudioBytes is the largest take kept. badger refuses values larger
// than its value log file, 1 GiB by default; at CD quality this is about an
// hour and a half.
const DefaultMaxAudioBytes = 1<<30 - 1<<20

// AudioStore keeps take audio keyed by record ID.
type AudioStore struct {
	db *badger.DB
}

// OpenAudio opens the audio store in dir, or in memory.
func OpenAudio(dir string, inMemory bool) (*AudioStore, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audio dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audio store: %w", err)
	}
	return &AudioStore{db: db}, nil
}

// Put stores the raw audio bytes of a take. The content type lives with the
// record.
func (s *AudioStore) Put(id string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(id), data)
	})
	if err != nil {
		return fmt.Errorf("store audio: %w", err)
	}
	return nil
}

func (s *AudioStore) Get(id string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: no audio for %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}
	return data, nil
}

func (s *AudioStore) Delete(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(id)); err != nil {
			return err
		}
		return txn.Delete([]byte(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: no audio for %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete audio: %w", err)
	}
	return nil
}

// DropAll removes every stored take.
func (s *AudioStore) DropAll() error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("drop audio: %w", err)
	}
	return nil
}

func (s *AudioStore) Close() error {
	return s.db.Close()
}
