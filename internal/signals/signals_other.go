//go:build !unix

package signals

import (
	"os"
	"syscall"
)

func routedSignals() []os.Signal {
	return []os.Signal{syscall.SIGTERM, os.Interrupt}
}

func kindOf(sig os.Signal) (Kind, bool) {
	switch sig {
	case syscall.SIGTERM, os.Interrupt:
		return Terminate, true
	}
	return 0, false
}
