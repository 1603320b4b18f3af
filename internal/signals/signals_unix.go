//go:build unix

package signals

import (
	"os"

	"golang.org/x/sys/unix"
)

func routedSignals() []os.Signal {
	return []os.Signal{unix.SIGTERM, unix.SIGUSR1, unix.SIGUSR2}
}

func kindOf(sig os.Signal) (Kind, bool) {
	switch sig {
	case unix.SIGTERM:
		return Terminate, true
	case unix.SIGUSR1:
		return User1, true
	case unix.SIGUSR2:
		return User2, true
	}
	return 0, false
}
