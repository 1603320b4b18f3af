package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"sysdaemon/internal/config"
	"sysdaemon/internal/logging"
)

const maxLoggedOutput = 4096

// workRunner executes the configured command once per iteration. With no
// command configured it only logs a heartbeat.
type workRunner struct {
	command     []string
	dir         string
	forwardStop bool
	logger      *slog.Logger

	mu      sync.Mutex
	current *os.Process
}

func newWorkRunner(work config.Work, logger *slog.Logger) *workRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &workRunner{
		command:     append([]string(nil), work.Command...),
		dir:         work.Dir,
		forwardStop: work.ForwardStop,
		logger:      logging.NewComponentLogger(logger, "work"),
	}
}

// Run executes one iteration.
func (w *workRunner) Run(ctx context.Context) error {
	if len(w.command) == 0 {
		w.logger.Info("iteration complete; no work command configured")
		return nil
	}

	cmd := exec.CommandContext(ctx, w.command[0], w.command[1:]...)
	cmd.Dir = w.dir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", w.command[0], err)
	}
	w.setCurrent(cmd.Process)
	err := cmd.Wait()
	w.setCurrent(nil)

	attrs := []logging.Attr{
		logging.String("command", strings.Join(w.command, " ")),
		logging.Duration("elapsed", time.Since(started)),
	}
	if text := strings.TrimSpace(output.String()); text != "" {
		if len(text) > maxLoggedOutput {
			text = text[:maxLoggedOutput] + "..."
		}
		attrs = append(attrs, logging.String("output", text))
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		attrs = append(attrs, logging.Int("exit_code", exitErr.ExitCode()))
	}
	w.logger.Debug("work command finished", logging.Args(attrs...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", w.command[0], err)
	}
	return nil
}

// OnStop ends the loop. A command still running is left to finish unless
// stop forwarding is enabled, in which case it receives SIGTERM.
func (w *workRunner) OnStop(stop func()) {
	if proc := w.running(); proc != nil && w.forwardStop {
		logging.Notice(w.logger, "stop requested; forwarding to running command",
			logging.Int(logging.FieldPID, proc.Pid),
		)
		if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logging.WarnWithContext(w.logger, "forwarding stop to work command failed", "work_forward_failed",
				logging.Int(logging.FieldPID, proc.Pid),
				logging.Error(err),
				logging.String(logging.FieldImpact, "daemon exits after the command finishes"),
			)
		}
	} else {
		logging.Notice(w.logger, "stop requested; current iteration will finish")
	}
	stop()
}

func (w *workRunner) setCurrent(proc *os.Process) {
	w.mu.Lock()
	w.current = proc
	w.mu.Unlock()
}

func (w *workRunner) running() *os.Process {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}
