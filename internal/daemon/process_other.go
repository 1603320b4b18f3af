//go:build !unix

package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

func (d *Daemon) spawn() (*exec.Cmd, *os.File, error) {
	return nil, nil, fmt.Errorf("%w: detached sessions require a unix platform", ErrForkUnavailable)
}

func sendSignal(pid int, force bool) error {
	if !force {
		return errors.New("graceful stop requires a unix platform")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
