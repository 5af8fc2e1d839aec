package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshot is the durable store document. The layout is the wire
// contract shared by every process using the same store file.
type snapshot struct {
	Tasks          []*Task   `json:"tasks"`
	TotalCreated   int       `json:"total_created"`
	TotalCompleted int       `json:"total_completed"`
	TotalFailed    int       `json:"total_failed"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Store persists the whole task collection to a single JSON file.
//
// Every save rewrites the entire document: the previous generation is
// first renamed to a .backup sibling, and a failed write restores it.
// Save and Load take an advisory file lock, so cooperating processes
// sharing one store file serialize their load-mutate-save cycles;
// between a Load and the next Save, last writer still wins.
type Store struct {
	path string
}

// NewStore creates a store backed by the JSON file at path. The file
// does not need to exist yet; the parent directory is created on the
// first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the primary store file path.
func (s *Store) Path() string { return s.path }

// BackupPath returns the path holding the previous store generation.
func (s *Store) BackupPath() string { return s.path + ".backup" }

func (s *Store) lockPath() string { return s.path + ".lock" }

// withLock runs fn while holding the store's advisory file lock.
func (s *Store) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()
	if err := lockFile(f); err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	defer unlockFile(f)
	return fn()
}

// Save writes the snapshot to the store file. The current file is
// renamed to the backup path first; if the subsequent write fails the
// backup is moved back so the store is never left truncated.
func (s *Store) Save(snap *snapshot) error {
	return s.withLock(func() error { return s.save(snap) })
}

func (s *Store) save(snap *snapshot) error {
	snap.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	hadPrevious := false
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.BackupPath()); err != nil {
			return fmt.Errorf("rotate backup: %w", err)
		}
		hadPrevious = true
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		if hadPrevious {
			if restoreErr := os.Rename(s.BackupPath(), s.path); restoreErr != nil {
				return fmt.Errorf("write store: %w (backup restore failed: %v)", err, restoreErr)
			}
		}
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

// ErrNoStore is returned by Load when the store file does not exist yet.
var ErrNoStore = errors.New("store file does not exist")

// Load reads and decodes the store file. A missing file returns
// ErrNoStore so first runs can start empty; a present-but-corrupt file
// returns the decode error for the caller to log.
func (s *Store) Load() (*snapshot, error) {
	var snap *snapshot
	err := s.withLock(func() error {
		data, err := os.ReadFile(s.path)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrNoStore
			}
			return fmt.Errorf("read store %s: %w", s.path, err)
		}
		snap = &snapshot{}
		if err := json.Unmarshal(data, snap); err != nil {
			return fmt.Errorf("decode store %s: %w", s.path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore moves the backup file back over the primary store file. It is
// the manual recovery path for a store left unreadable by a crash.
func (s *Store) Restore() error {
	return s.withLock(func() error {
		if err := os.Rename(s.BackupPath(), s.path); err != nil {
			return fmt.Errorf("restore backup: %w", err)
		}
		return nil
	})
}
