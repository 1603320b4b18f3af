package lockfile

import (
	"errors"
	"fmt"
)

var (
	// ErrLockWrite marks failures creating or replacing the lock record.
	ErrLockWrite = errors.New("lock write failed")
	// ErrLockDelete marks failures removing the lock record.
	ErrLockDelete = errors.New("lock delete failed")
	// ErrPermissionDenied marks a lock record the caller may not read.
	ErrPermissionDenied = errors.New("lock permission denied")
	// ErrStartRefused marks a live record owned by another process.
	ErrStartRefused = errors.New("daemon already running")
)

// HeldError reports the live process that currently owns the lock.
type HeldError struct {
	PID  int
	Path string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("daemon already running with pid %d (lock %s)", e.PID, e.Path)
}

func (e *HeldError) Unwrap() error {
	return ErrStartRefused
}
