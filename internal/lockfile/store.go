package lockfile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"sysdaemon/internal/fileutil"
	"sysdaemon/internal/logging"
)

type recordState int

const (
	stateMissing recordState = iota
	stateLive
	stateStale
	stateCorrupt
)

// Store reads and writes the lock record for one daemon. A disabled store
// turns every operation into a no-op that reports "not running".
type Store struct {
	path    string
	enabled bool
	logger  *slog.Logger

	mu    sync.Mutex
	guard *flock.Flock
	alive func(int) bool
}

// New returns a store for the record at path.
func New(path string, enabled bool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		path:    path,
		enabled: enabled,
		logger:  logging.NewComponentLogger(logger, "lockfile"),
		guard:   flock.New(path+".guard", flock.SetPermissions(0o644)),
		alive:   ProcessAlive,
	}
}

// Path returns the lock record location.
func (s *Store) Path() string {
	return s.path
}

// Enabled reports whether the store manages a record at all.
func (s *Store) Enabled() bool {
	return s.enabled
}

// Write atomically replaces the record.
func (s *Store) Write(rec Record) error {
	if !s.enabled {
		return nil
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockWrite, err)
	}
	if err := fileutil.EnsureParentDir(s.path, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrLockWrite, err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrLockWrite, err)
	}
	return nil
}

// Read returns the record and whether it names a live process. Stale or
// corrupted records are deleted on the way; failing to delete them is
// logged and the daemon is still reported as not running.
func (s *Store) Read() (Record, bool, error) {
	if !s.enabled {
		return Record{}, false, nil
	}
	rec, state, err := s.inspect()
	if err != nil {
		return Record{}, false, err
	}
	switch state {
	case stateLive:
		return rec, true, nil
	case stateMissing:
		return Record{}, false, nil
	}

	err = s.withGuard(func() error {
		rec, state, err = s.inspect()
		if err != nil || state == stateLive || state == stateMissing {
			return err
		}
		s.reclaim(rec, state)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return Record{}, false, err
		}
		logging.WarnWithContext(s.logger, "lock guard unavailable; stale record left in place", "lock_guard_failed",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions of the lock directory"),
		)
		return Record{}, false, nil
	}
	if state == stateLive {
		return rec, true, nil
	}
	return Record{}, false, nil
}

// Delete removes the record. A missing record is not an error.
func (s *Store) Delete() error {
	if !s.enabled {
		return nil
	}
	if err := fileutil.RemoveIfExists(s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrLockDelete, err)
	}
	return nil
}

// EnsureNotLocked fails with a *HeldError when a live process owns the
// record, and clears stale or corrupted records otherwise.
func (s *Store) EnsureNotLocked() error {
	if !s.enabled {
		return nil
	}
	return s.withGuard(func() error {
		rec, state, err := s.inspect()
		if err != nil {
			return err
		}
		switch state {
		case stateLive:
			return &HeldError{PID: rec.PID, Path: s.path}
		case stateStale, stateCorrupt:
			s.reclaim(rec, state)
		}
		return nil
	})
}

// Claim writes rec unless a different live process already owns the record.
func (s *Store) Claim(rec Record) error {
	if !s.enabled {
		return nil
	}
	return s.withGuard(func() error {
		current, state, err := s.inspect()
		if err != nil {
			return err
		}
		if state == stateLive && current.PID != rec.PID {
			return &HeldError{PID: current.PID, Path: s.path}
		}
		return s.Write(rec)
	})
}

// CheckWritable verifies the record's directory accepts new files.
func (s *Store) CheckWritable() error {
	if !s.enabled {
		return nil
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrLockWrite, err)
	}
	if err := dirWritable(dir); err != nil {
		return fmt.Errorf("%w: directory %s: %v", ErrLockWrite, dir, err)
	}
	return nil
}

func (s *Store) inspect() (Record, recordState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return Record{}, stateMissing, nil
		case errors.Is(err, fs.ErrPermission):
			return Record{}, stateMissing, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		default:
			return Record{}, stateMissing, fmt.Errorf("read lock record: %w", err)
		}
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return Record{}, stateCorrupt, nil
	}
	if !s.alive(rec.PID) {
		return rec, stateStale, nil
	}
	return rec, stateLive, nil
}

func (s *Store) reclaim(rec Record, state recordState) {
	reason := "process not alive"
	if state == stateCorrupt {
		reason = "record unreadable"
	}
	if err := s.Delete(); err != nil {
		logging.WarnWithContext(s.logger, "stale lock record could not be removed", "lock_reclaim_failed",
			logging.String("path", s.path),
			logging.Int(logging.FieldPID, rec.PID),
			logging.String("reason", reason),
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start will fail to write the lock"),
		)
		return
	}
	logging.WarnWithContext(s.logger, "stale lock record removed", "lock_reclaimed",
		logging.String("path", s.path),
		logging.Int(logging.FieldPID, rec.PID),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "previous instance exited without cleanup"),
		logging.String(logging.FieldImpact, "none"),
	)
}

func (s *Store) withGuard(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fileutil.EnsureParentDir(s.guard.Path(), 0o755); err != nil {
		return fmt.Errorf("prepare lock guard: %w", err)
	}
	if err := s.guard.Lock(); err != nil {
		return fmt.Errorf("acquire lock guard: %w", err)
	}
	defer func() {
		_ = s.guard.Unlock()
	}()
	return fn()
}
