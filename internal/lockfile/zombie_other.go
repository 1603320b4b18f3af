//go:build unix && !linux

package lockfile

func isZombie(int) bool { return false }
