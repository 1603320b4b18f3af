//go:build unix

package daemon_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"sysdaemon/internal/daemon"
	"sysdaemon/internal/lockfile"
)

// newHelperDaemon returns a parent-side handle whose child is this test
// binary running runHelperChild.
func newHelperDaemon(t *testing.T, name string) (*daemon.Daemon, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(helperDirEnv, dir)
	t.Setenv(helperIntervalEnv, "1")

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	strategy, err := daemon.Ticking(time.Second, noopRoutine)
	if err != nil {
		t.Fatal(err)
	}
	d, err := daemon.New(daemon.Identity{Name: name}, strategy,
		daemon.WithLockTemplate(lockTemplate(dir)),
		daemon.WithCommand(exe, "-test.run=^$"),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		if status, err := d.Status(); err == nil && status.Running {
			_, _ = d.Kill()
		}
	})
	return d, dir
}

func waitUntil(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func countTicks(t *testing.T, dir string) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "ticks.log"))
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	if err != nil {
		t.Fatalf("read ticks: %v", err)
	}
	return strings.Count(string(data), "tick\n")
}

func TestTickingDaemonLifecycle(t *testing.T) {
	d, dir := newHelperDaemon(t, "ticker")
	ctx := context.Background()

	pid, err := d.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if pid <= 0 || pid == os.Getpid() {
		t.Fatalf("Start returned pid %d", pid)
	}

	status, err := d.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Record.PID != pid {
		t.Fatalf("Status = %+v, want running pid %d", status, pid)
	}

	_, err = d.Start(ctx)
	var refused *daemon.StartRefusedError
	if !errors.As(err, &refused) || refused.PID != pid {
		t.Fatalf("second Start err = %v, want StartRefusedError naming pid %d", err, pid)
	}

	time.Sleep(2500 * time.Millisecond)
	if ticks := countTicks(t, dir); ticks < 2 {
		t.Fatalf("got %d ticks after 2.5s, want at least 2", ticks)
	}
	pidData, err := os.ReadFile(filepath.Join(dir, "daemon-ticker.pid"))
	if err != nil || strings.TrimSpace(string(pidData)) != strconv.Itoa(pid) {
		t.Fatalf("pid file = %q, %v; want %d", pidData, err, pid)
	}

	result, err := d.Stop()
	if err != nil || result.State != daemon.SignalSent || result.PID != pid {
		t.Fatalf("Stop = %+v, %v", result, err)
	}
	waitUntil(t, 3*time.Second, "lock removal", func() bool {
		_, err := os.Stat(d.LockPath())
		return errors.Is(err, os.ErrNotExist)
	})
	waitUntil(t, 3*time.Second, "process exit", func() bool {
		return !lockfile.ProcessAlive(pid)
	})
	if _, err := os.Stat(filepath.Join(dir, "daemon-ticker.pid")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid file not removed on graceful exit: %v", err)
	}

	result, err = d.Stop()
	if err != nil || result.State != daemon.SignalNotRunning {
		t.Fatalf("Stop after exit = %+v, %v", result, err)
	}
}

func TestKilledDaemonLeavesReclaimableLock(t *testing.T) {
	d, _ := newHelperDaemon(t, "victim")
	ctx := context.Background()

	pid, err := d.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	result, err := d.Kill()
	if err != nil || result.State != daemon.SignalSent || result.PID != pid {
		t.Fatalf("Kill = %+v, %v", result, err)
	}
	waitUntil(t, 3*time.Second, "killed process to die", func() bool {
		return !lockfile.ProcessAlive(pid)
	})
	if _, err := os.Stat(d.LockPath()); err != nil {
		t.Fatalf("SIGKILL must leave the lock behind: %v", err)
	}

	result, err = d.Kill()
	if err != nil || result.State != daemon.SignalNotRunning {
		t.Fatalf("second Kill = %+v, %v", result, err)
	}

	next, err := d.Start(ctx)
	if err != nil {
		t.Fatalf("restart after kill: %v", err)
	}
	if next == pid {
		t.Fatalf("restart reused pid %d", pid)
	}
	if _, err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitUntil(t, 3*time.Second, "lock removal", func() bool {
		status, err := d.Status()
		return err == nil && !status.Running
	})
}

func TestStopImmediatelyAfterStartShutsDownCleanly(t *testing.T) {
	d, _ := newHelperDaemon(t, "hasty")
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		pid, err := d.Start(ctx)
		if err != nil {
			t.Fatalf("round %d: Start: %v", round, err)
		}
		result, err := d.Stop()
		if err != nil || result.State != daemon.SignalSent || result.PID != pid {
			t.Fatalf("round %d: Stop = %+v, %v", round, result, err)
		}
		waitUntil(t, 3*time.Second, "process exit", func() bool {
			return !lockfile.ProcessAlive(pid)
		})
		// A child killed by the default SIGTERM action would leave its lock behind.
		if _, err := os.Stat(d.LockPath()); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("round %d: lock left behind after graceful stop: %v", round, err)
		}
	}
}

func TestStartReturnsOnReadinessNotification(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	d := newTestDaemon(t, "notifier",
		daemon.WithCommand(sh, "-c", `printf x >&3; exec 3>&-; exec sleep 30`),
		daemon.WithReadyTimeout(20*time.Second),
	)

	started := time.Now()
	pid, err := d.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = unix.Kill(pid, unix.SIGKILL) })
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("Start took %s; readiness byte was ignored", elapsed)
	}
}

func TestChildExitCodesMapToErrors(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	cases := []struct {
		code string
		want error
	}{
		{"3", daemon.ErrLockWrite},
		{"4", daemon.ErrStartRefused},
		{"7", daemon.ErrForkFailed},
	}
	for _, tc := range cases {
		t.Run("exit "+tc.code, func(t *testing.T) {
			d := newTestDaemon(t, "exiter", daemon.WithCommand(sh, "-c", "exit "+tc.code))
			pid, err := d.Start(context.Background())
			if pid <= 0 {
				t.Fatalf("Start pid = %d", pid)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Start err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestChildPathRunsUntilTerminated(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(daemon.ChildEnv, "inproc")

	iterations := make(chan struct{}, 64)
	user1 := make(chan struct{}, 1)
	var stopHook atomic.Bool
	exitCode := -1

	d, err := daemon.New(daemon.Identity{Name: "inproc", Group: "ops"},
		daemon.Continuous(func(context.Context) error {
			select {
			case iterations <- struct{}{}:
			default:
			}
			return errors.New("routine errors are logged, not fatal")
		}),
		daemon.WithLockTemplate(lockTemplate(dir)),
		daemon.WithPIDFile(filepath.Join(dir, "daemon-{name}.pid")),
		daemon.WithContinuousPause(10*time.Millisecond),
		daemon.WithHooks(daemon.Hooks{
			OnStop: func(stop func()) {
				stopHook.Store(true)
				stop()
			},
			OnUser1: func() { user1 <- struct{}{} },
		}),
		daemon.WithExit(func(code int) { exitCode = code }),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if !d.IsChild() {
		t.Fatal("marker set, expected child path")
	}

	done := make(chan error, 1)
	go func() {
		_, err := d.Start(context.Background())
		done <- err
	}()

	select {
	case <-iterations:
	case <-time.After(5 * time.Second):
		t.Fatal("routine never ran")
	}
	<-iterations
	if os.Getenv(daemon.ChildEnv) != "" {
		t.Fatal("child marker must be removed from the environment")
	}

	status, err := d.Status()
	if err != nil || !status.Running || status.Record.PID != os.Getpid() || status.Record.Group != "ops" {
		t.Fatalf("Status = %+v, %v", status, err)
	}
	if _, err := os.Stat(d.PIDPath()); err != nil {
		t.Fatalf("pid file missing: %v", err)
	}

	if err := unix.Kill(os.Getpid(), unix.SIGUSR1); err != nil {
		t.Fatal(err)
	}
	select {
	case <-user1:
	case <-time.After(5 * time.Second):
		t.Fatal("user1 hook never ran")
	}

	if err := unix.Kill(os.Getpid(), unix.SIGTERM); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after SIGTERM")
	}

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}
	if !stopHook.Load() {
		t.Fatal("continuous stop must route through OnStop")
	}
	if _, err := os.Stat(d.LockPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock not removed: %v", err)
	}
	if _, err := os.Stat(d.PIDPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid file not removed: %v", err)
	}
}

func TestChildPathRefusesForeignLiveLock(t *testing.T) {
	parent := os.Getppid()
	if !lockfile.ProcessAlive(parent) || parent <= 1 {
		t.Skip("no live parent process to stand in as the owner")
	}
	dir := t.TempDir()
	t.Setenv(daemon.ChildEnv, "contested")
	exitCode := -1
	d, err := daemon.New(daemon.Identity{Name: "contested"}, daemon.Continuous(noopRoutine),
		daemon.WithLockTemplate(lockTemplate(dir)),
		daemon.WithExit(func(code int) { exitCode = code }),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := lockfile.New(d.LockPath(), true, nil).Write(lockfile.Record{PID: parent}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if _, err := d.Start(context.Background()); err == nil {
		t.Fatal("expected child start to fail")
	}
	if exitCode != 4 {
		t.Fatalf("exit code = %d, want 4", exitCode)
	}
}
