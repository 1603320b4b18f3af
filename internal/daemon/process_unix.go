//go:build unix

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// spawn re-executes the configured program as a session leader with the
// child marker set and stdio attached to the null device. The returned file
// is the read end of the readiness pipe handed to the child as fd 3.
func (d *Daemon) spawn() (*exec.Cmd, *os.File, error) {
	path, args := d.command, d.args
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: resolve executable: %v", ErrForkUnavailable, err)
		}
		path, args = exe, os.Args[1:]
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %v", ErrForkFailed, os.DevNull, err)
	}
	defer devnull.Close()

	readyR, readyW, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: readiness pipe: %v", ErrForkFailed, err)
	}
	// The child must hold the only write end, or the parent never sees EOF.
	defer readyW.Close()

	cmd := exec.Command(path, args...)
	cmd.Env = append(withoutChildEnv(os.Environ()),
		ChildEnv+"="+d.identity.Name,
		ReadyEnv+"="+strconv.Itoa(readyFD),
	)
	cmd.ExtraFiles = []*os.File{readyW}
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		_ = readyR.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrForkFailed, err)
	}
	return cmd, readyR, nil
}

// readyFD is the descriptor number of the first entry in cmd.ExtraFiles.
const readyFD = 3

func withoutChildEnv(env []string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, ChildEnv+"=") || strings.HasPrefix(kv, ReadyEnv+"=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func sendSignal(pid int, force bool) error {
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	return unix.Kill(pid, sig)
}
