package daemon

import (
	"log/slog"
	"time"
)

const (
	// DefaultLockTemplate places the lock record in the temp directory.
	DefaultLockTemplate = "{tmp}/daemon-{name}.lock"
	// DefaultPIDTemplate places the optional pid file next to the lock.
	DefaultPIDTemplate = "{tmp}/daemon-{name}.pid"
	// DefaultReadyTimeout bounds how long Start waits for the child to report
	// readiness.
	DefaultReadyTimeout = 5 * time.Second
)

// Option customises a Daemon.
type Option func(*Daemon)

// WithLogger sets the logger used by both parent and child.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Daemon) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLockTemplate overrides the lock record path template.
func WithLockTemplate(template string) Option {
	return func(d *Daemon) {
		if template != "" {
			d.lockTemplate = template
		}
	}
}

// WithoutLock disables the lock record. Status then always reports the
// daemon as not running.
func WithoutLock() Option {
	return func(d *Daemon) { d.lockEnabled = false }
}

// WithPIDFile enables the plain pid file at template. An empty template
// disables it.
func WithPIDFile(template string) Option {
	return func(d *Daemon) { d.pidTemplate = template }
}

// WithHooks installs lifecycle hooks.
func WithHooks(hooks Hooks) Option {
	return func(d *Daemon) { d.hooks = hooks }
}

// WithContinuousPause overrides the pause between continuous iterations.
func WithContinuousPause(pause time.Duration) Option {
	return func(d *Daemon) {
		if pause > 0 {
			d.pause = pause
		}
	}
}

// WithCommand overrides the program the parent re-executes as the child.
// By default the current executable is run with the current arguments.
func WithCommand(path string, args ...string) Option {
	return func(d *Daemon) {
		d.command = path
		d.args = append([]string(nil), args...)
	}
}

// WithReadyTimeout bounds how long Start waits for the child to claim its
// lock and install its signal handlers. Zero returns as soon as the child is
// spawned.
func WithReadyTimeout(timeout time.Duration) Option {
	return func(d *Daemon) {
		if timeout >= 0 {
			d.readyTimeout = timeout
		}
	}
}

// WithExit replaces os.Exit on the child path.
func WithExit(exit func(code int)) Option {
	return func(d *Daemon) {
		if exit != nil {
			d.exit = exit
		}
	}
}
