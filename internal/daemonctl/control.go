package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sysdaemon/internal/daemon"
	"sysdaemon/internal/logging"
)

const (
	DefaultPollInterval = time.Second
	DefaultStopTimeout  = 30 * time.Second
)

// ErrStopTimeout indicates the daemon still held its lock when the stop
// timeout elapsed.
var ErrStopTimeout = errors.New("daemon did not stop in time")

// Options tunes the controller's waiting behaviour.
type Options struct {
	PollInterval time.Duration
	StopTimeout  time.Duration
	Logger       *slog.Logger
}

// Controller drives a daemon from another process.
type Controller struct {
	daemon       *daemon.Daemon
	pollInterval time.Duration
	stopTimeout  time.Duration
	logger       *slog.Logger
}

// StopResult captures a stop-and-wait attempt.
type StopResult struct {
	WasRunning bool
	Signal     daemon.SignalResult
	Stopped    bool
	Waited     time.Duration
}

// RestartResult captures the stop and start halves of a restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	PID        int
}

// New wraps d. Zero option values fall back to the defaults.
func New(d *daemon.Daemon, opts Options) *Controller {
	c := &Controller{
		daemon:       d,
		pollInterval: opts.PollInterval,
		stopTimeout:  opts.StopTimeout,
		logger:       opts.Logger,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.stopTimeout <= 0 {
		c.stopTimeout = DefaultStopTimeout
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	c.logger = logging.NewComponentLogger(c.logger, "daemonctl")
	return c
}

// Start launches the daemon.
func (c *Controller) Start(ctx context.Context) (int, error) {
	return c.daemon.Start(ctx)
}

// Status reports the daemon's lock-record view.
func (c *Controller) Status() (daemon.Status, error) {
	return c.daemon.Status()
}

// Kill sends SIGKILL and reports whether the OS accepted it.
func (c *Controller) Kill() (daemon.SignalResult, error) {
	return c.daemon.Kill()
}

// StopAndWait sends SIGTERM and blocks until the daemon no longer holds its
// lock or the stop timeout elapses. A daemon that was not running is not an
// error.
func (c *Controller) StopAndWait(ctx context.Context) (StopResult, error) {
	signal, err := c.daemon.Stop()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{Signal: signal}
	switch signal.State {
	case daemon.SignalNotRunning:
		return result, nil
	case daemon.SignalRejected:
		result.WasRunning = true
		return result, fmt.Errorf("stop rejected: %w", signal.Reason)
	}
	result.WasRunning = true

	started := time.Now()
	err = c.WaitForShutdown(ctx, signal.PID)
	result.Waited = time.Since(started)
	if err != nil {
		return result, err
	}
	result.Stopped = true
	c.logger.Info("daemon stopped",
		logging.Int(logging.FieldPID, signal.PID),
		logging.Duration("waited", result.Waited),
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
	return result, nil
}

// WaitForShutdown blocks until the lock no longer names pid. The lock is
// re-read every poll interval and whenever its directory reports a change.
func (c *Controller) WaitForShutdown(ctx context.Context, pid int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lockPath := c.daemon.LockPath()
	events, closeWatch := c.watchLock(lockPath)
	defer closeWatch()

	deadline := time.NewTimer(c.stopTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.daemon.Status()
		if err != nil {
			return err
		}
		if !status.Running || status.Record.PID != pid {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: pid %d still holds %s after %s", ErrStopTimeout, pid, lockPath, c.stopTimeout)
		case <-ticker.C:
		case <-events:
		}
	}
}

// Restart stops the daemon if it is running, waits for it, and starts it
// again.
func (c *Controller) Restart(ctx context.Context) (RestartResult, error) {
	stop, err := c.StopAndWait(ctx)
	if err != nil {
		return RestartResult{WasRunning: stop.WasRunning, Stop: stop}, err
	}
	pid, err := c.daemon.Start(ctx)
	if err != nil {
		return RestartResult{WasRunning: stop.WasRunning, Stop: stop}, err
	}
	return RestartResult{WasRunning: stop.WasRunning, Stop: stop, PID: pid}, nil
}

// watchLock returns a channel that receives when the lock file is removed or
// replaced. Without a usable watcher the channel never fires and the caller
// relies on polling.
func (c *Controller) watchLock(lockPath string) (<-chan struct{}, func()) {
	wake := make(chan struct{}, 1)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.logger.Debug("lock watcher unavailable; polling only", logging.Error(err))
		return wake, func() {}
	}
	if err := watcher.Add(filepath.Dir(lockPath)); err != nil {
		_ = watcher.Close()
		c.logger.Debug("lock watcher unavailable; polling only", logging.Error(err))
		return wake, func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(lockPath) {
					continue
				}
				if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Create) {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Debug("lock watcher error", logging.Error(err))
			}
		}
	}()
	return wake, func() {
		close(done)
		_ = watcher.Close()
	}
}
