package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/uuid"

	"sysdaemon/internal/lockfile"
	"sysdaemon/internal/logging"
	"sysdaemon/internal/signals"
)

// ChildEnv marks a re-executed process as the child of the named daemon.
const ChildEnv = "SYSDAEMON_CHILD"

// ReadyEnv names the inherited descriptor the child writes one byte to once
// its lock is claimed and its signal handlers are installed.
const ReadyEnv = "SYSDAEMON_READY_FD"

// Child exit codes understood by the parent while it waits for readiness.
const (
	exitOK           = 0
	exitFailure      = 1
	exitLockWrite    = 3
	exitStartRefused = 4
)

// Daemon is a configured, not yet started, background process.
type Daemon struct {
	identity Identity
	strategy Strategy
	hooks    Hooks
	logger   *slog.Logger

	lockTemplate string
	lockEnabled  bool
	pidTemplate  string
	pause        time.Duration
	readyTimeout time.Duration
	command      string
	args         []string
	exit         func(int)

	store   *lockfile.Store
	pidFile *lockfile.PIDFile
}

// Status describes the daemon as seen through its lock record.
type Status struct {
	Running  bool
	Record   lockfile.Record
	LockPath string
}

// New validates identity and strategy and applies opts. Nothing on disk or
// in the process table is touched.
func New(identity Identity, strategy Strategy, opts ...Option) (*Daemon, error) {
	id, err := identity.normalize()
	if err != nil {
		return nil, err
	}
	if err := strategy.validate(); err != nil {
		return nil, err
	}

	d := &Daemon{
		identity:     id,
		strategy:     strategy,
		logger:       logging.NewNop(),
		lockTemplate: DefaultLockTemplate,
		lockEnabled:  true,
		pause:        DefaultContinuousPause,
		readyTimeout: DefaultReadyTimeout,
		exit:         os.Exit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	d.logger = d.logger.With(logging.String(logging.FieldDaemon, id.Name))
	d.store = lockfile.New(lockfile.ResolvePath(d.lockTemplate, id.Name), d.lockEnabled, d.logger)
	if d.pidTemplate != "" {
		d.pidFile = lockfile.NewPIDFile(lockfile.ResolvePath(d.pidTemplate, id.Name))
	}
	return d, nil
}

// Identity returns the normalized identity.
func (d *Daemon) Identity() Identity {
	return d.identity
}

// LockPath returns the resolved lock record path.
func (d *Daemon) LockPath() string {
	return d.store.Path()
}

// PIDPath returns the resolved pid file path, or "" when disabled.
func (d *Daemon) PIDPath() string {
	if d.pidFile == nil {
		return ""
	}
	return d.pidFile.Path()
}

// IsChild reports whether the current process was spawned as this daemon's
// child.
func (d *Daemon) IsChild() bool {
	return os.Getenv(ChildEnv) == d.identity.Name
}

// Start daemonizes. In the invoking process it spawns the child and returns
// its pid. In the child it runs the strategy until stopped and then exits
// the process; Start returns there only when an exit function was injected.
func (d *Daemon) Start(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d.IsChild() {
		_ = os.Unsetenv(ChildEnv)
		ready := takeReadyPipe()
		code := d.runChild(ctx, ready)
		d.exit(code)
		if code != exitOK {
			return os.Getpid(), fmt.Errorf("daemon child exited with code %d", code)
		}
		return os.Getpid(), nil
	}
	return d.startParent(ctx)
}

func (d *Daemon) startParent(ctx context.Context) (int, error) {
	if err := d.store.EnsureNotLocked(); err != nil {
		return 0, refusedFrom(err)
	}
	if err := d.store.CheckWritable(); err != nil {
		return 0, err
	}

	cmd, ready, err := d.spawn()
	if err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	d.logger.Info("daemon spawned",
		logging.Int(logging.FieldPID, pid),
		logging.String("lock", d.store.Path()),
		logging.String(logging.FieldEventType, "daemon_spawned"),
	)

	if d.readyTimeout == 0 {
		_ = ready.Close()
		return pid, nil
	}
	return pid, d.awaitReady(ctx, pid, ready, exited)
}

// awaitReady blocks until the child reports readiness over the pipe, the
// child exits, or the ready timeout elapses. Once ready, the lock names the
// child and a SIGTERM reaches the installed handler. A timeout is logged
// but not fatal.
func (d *Daemon) awaitReady(ctx context.Context, pid int, ready *os.File, exited <-chan error) error {
	defer ready.Close()
	signaled := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		if n, _ := ready.Read(buf); n == 1 {
			close(signaled)
		}
	}()

	timer := time.NewTimer(d.readyTimeout)
	defer timer.Stop()

	select {
	case <-signaled:
		return nil
	case err := <-exited:
		return d.childExitError(err)
	case <-ctx.Done():
		return nil
	case <-timer.C:
		logging.WarnWithContext(d.logger, "daemon did not report readiness in time", "daemon_ready_timeout",
			logging.Int(logging.FieldPID, pid),
			logging.Duration("timeout", d.readyTimeout),
			logging.String(logging.FieldImpact, "status or stop may briefly miss the daemon"),
		)
		return nil
	}
}

func (d *Daemon) childExitError(waitErr error) error {
	if waitErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return fmt.Errorf("%w: %v", ErrForkFailed, waitErr)
	}
	switch exitErr.ExitCode() {
	case exitLockWrite:
		return fmt.Errorf("%w: child could not write %s", ErrLockWrite, d.store.Path())
	case exitStartRefused:
		if rec, running, err := d.store.Read(); err == nil && running {
			return &StartRefusedError{PID: rec.PID, LockPath: d.store.Path()}
		}
		return fmt.Errorf("%w: another instance claimed %s first", ErrStartRefused, d.store.Path())
	default:
		return fmt.Errorf("%w: child exited during startup: %v", ErrForkFailed, waitErr)
	}
}

// takeReadyPipe claims the readiness descriptor passed by the parent, if any.
func takeReadyPipe() *os.File {
	raw, ok := os.LookupEnv(ReadyEnv)
	_ = os.Unsetenv(ReadyEnv)
	if !ok {
		return nil
	}
	fd, err := strconv.Atoi(raw)
	if err != nil || fd < 3 {
		return nil
	}
	return os.NewFile(uintptr(fd), "ready")
}

func (d *Daemon) runChild(ctx context.Context, ready *os.File) int {
	if ready != nil {
		defer ready.Close()
	}
	logger := d.logger.With(
		logging.Int(logging.FieldPID, os.Getpid()),
		logging.String(logging.FieldRunID, uuid.NewString()),
	)

	rec := lockfile.Current(d.identity.Group)
	if err := d.store.Claim(rec); err != nil {
		if errors.Is(err, lockfile.ErrStartRefused) {
			logging.ErrorWithContext(logger, "another instance owns the lock", "daemon_start_refused",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "stop the running instance first"),
			)
			return exitStartRefused
		}
		logging.ErrorWithContext(logger, "lock record write failed", "lock_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions of the lock directory"),
		)
		return exitLockWrite
	}
	if err := d.pidFile.Write(rec.PID); err != nil {
		logging.WarnWithContext(logger, "pid file write failed", "pid_file_write_failed",
			logging.String("path", d.PIDPath()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "external tools cannot find the daemon pid"),
		)
	}

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	router := signals.NewRouter(d.signalHandlers(logger, stop), logger)
	router.Install()
	notifyReady(ready, logger)
	logging.Notice(logger, "daemon started",
		logging.String("strategy", string(d.strategy.Kind)),
		logging.String("full_name", d.identity.FullName),
		logging.String("group", d.identity.Group),
	)

	code := exitOK
	if d.hooks.OnStart != nil {
		if err := d.hooks.OnStart(ctx); err != nil {
			logging.ErrorWithContext(logger, "start hook failed", "daemon_start_hook_failed", logging.Error(err))
			code = exitFailure
		}
	}
	if code == exitOK {
		d.loop(ctx, runCtx, logger)
	}

	router.Uninstall()
	if err := d.pidFile.Remove(); err != nil {
		logging.WarnWithContext(logger, "pid file removal failed", "pid_file_remove_failed",
			logging.String("path", d.PIDPath()),
			logging.Error(err),
		)
	}
	if err := d.store.Delete(); err != nil {
		logging.ErrorWithContext(logger, "lock record removal failed", "lock_delete_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file manually"),
		)
		return exitFailure
	}
	logging.Notice(logger, "daemon stopped")
	return code
}

func notifyReady(ready *os.File, logger *slog.Logger) {
	if ready == nil {
		return
	}
	if _, err := ready.Write([]byte{1}); err != nil {
		logging.WarnWithContext(logger, "readiness notification failed", "daemon_ready_notify_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the starting process waits for its ready timeout"),
		)
	}
	// Closed before any work runs so work commands never inherit it.
	_ = ready.Close()
}

func (d *Daemon) loop(ctx, runCtx context.Context, logger *slog.Logger) {
	pause := d.pause
	if d.strategy.Kind == KindTicking {
		pause = d.strategy.Interval
	}
	for runCtx.Err() == nil {
		d.invoke(ctx, logger)
		if !sleep(runCtx, pause) {
			return
		}
	}
}

func (d *Daemon) invoke(ctx context.Context, logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.ErrorWithContext(logger, "routine panicked", "routine_panic", logging.Any("panic", rec))
		}
	}()
	if err := d.strategy.Routine(ctx); err != nil {
		logging.ErrorWithContext(logger, "routine failed", "routine_failed", logging.Error(err))
	}
}

// sleep waits for d or until ctx is cancelled, reporting whether the full
// pause elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (d *Daemon) signalHandlers(logger *slog.Logger, stop context.CancelFunc) signals.Handlers {
	terminate := func() {
		logging.Notice(logger, "stop requested")
		stop()
	}
	if d.strategy.Kind == KindContinuous && d.hooks.OnStop != nil {
		onStop := d.hooks.OnStop
		terminate = func() { onStop(stop) }
	}
	user1 := d.hooks.OnUser1
	if user1 == nil {
		user1 = func() { logging.Notice(logger, "user signal 1 received") }
	}
	user2 := d.hooks.OnUser2
	if user2 == nil {
		user2 = func() { logging.Notice(logger, "user signal 2 received") }
	}
	return signals.Handlers{Terminate: terminate, User1: user1, User2: user2}
}

// Status reports whether a live process owns the lock record. Without a
// lock record the daemon is always reported as not running.
func (d *Daemon) Status() (Status, error) {
	status := Status{LockPath: d.store.Path()}
	if !d.store.Enabled() {
		return status, nil
	}
	rec, running, err := d.store.Read()
	if err != nil {
		return status, err
	}
	status.Running = running
	if running {
		status.Record = rec
	}
	return status, nil
}
