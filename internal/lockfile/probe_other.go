//go:build !unix

package lockfile

import "os"

// ProcessAlive reports whether pid names a running process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}

func currentIDs() (int, int) {
	return os.Getuid(), os.Getgid()
}

func dirWritable(string) error { return nil }
