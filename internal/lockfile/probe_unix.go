//go:build unix

package lockfile

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ProcessAlive reports whether pid names a running process. A process owned
// by another user still counts as alive; an exited but unreaped child does
// not.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}
	return !isZombie(pid)
}

func currentIDs() (int, int) {
	return unix.Getuid(), unix.Getgid()
}

func dirWritable(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}
