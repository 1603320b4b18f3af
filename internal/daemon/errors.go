package daemon

import (
	"errors"
	"fmt"

	"sysdaemon/internal/lockfile"
)

var (
	ErrConfiguration    = errors.New("configuration error")
	ErrForkUnavailable  = errors.New("process creation unavailable")
	ErrForkFailed       = errors.New("process creation failed")
	ErrStartRefused     = lockfile.ErrStartRefused
	ErrLockWrite        = lockfile.ErrLockWrite
	ErrLockDelete       = lockfile.ErrLockDelete
	ErrPermissionDenied = lockfile.ErrPermissionDenied
)

// StartRefusedError names the live process that already owns the daemon.
type StartRefusedError struct {
	PID      int
	LockPath string
}

func (e *StartRefusedError) Error() string {
	return fmt.Sprintf("daemon already running with pid %d", e.PID)
}

func (e *StartRefusedError) Unwrap() error {
	return ErrStartRefused
}

func refusedFrom(err error) error {
	var held *lockfile.HeldError
	if errors.As(err, &held) {
		return &StartRefusedError{PID: held.PID, LockPath: held.Path}
	}
	return err
}
