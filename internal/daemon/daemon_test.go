package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sysdaemon/internal/daemon"
	"sysdaemon/internal/lockfile"
)

// deadPID is above every kernel's pid_max.
const deadPID = 2147483000

func noopRoutine(context.Context) error { return nil }

func lockTemplate(dir string) string {
	return filepath.Join(dir, "daemon-{name}.lock")
}

func newTestDaemon(t *testing.T, name string, opts ...daemon.Option) *daemon.Daemon {
	t.Helper()
	opts = append([]daemon.Option{daemon.WithLockTemplate(lockTemplate(t.TempDir()))}, opts...)
	d, err := daemon.New(daemon.Identity{Name: name}, daemon.Continuous(noopRoutine), opts...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestNewRejectsBadIdentity(t *testing.T) {
	for _, name := range []string{"", "   ", "has space", "../escape", "semi;colon"} {
		_, err := daemon.New(daemon.Identity{Name: name}, daemon.Continuous(noopRoutine))
		if !errors.Is(err, daemon.ErrConfiguration) {
			t.Fatalf("name %q: err = %v, want ErrConfiguration", name, err)
		}
	}
}

func TestNewDefaultsIdentity(t *testing.T) {
	d := newTestDaemon(t, "report-builder")
	id := d.Identity()
	if id.FullName != "Report Builder" {
		t.Fatalf("FullName = %q, want %q", id.FullName, "Report Builder")
	}
	if id.Group != daemon.DefaultGroup {
		t.Fatalf("Group = %q, want %q", id.Group, daemon.DefaultGroup)
	}
	if !strings.HasSuffix(d.LockPath(), "daemon-report-builder.lock") {
		t.Fatalf("LockPath = %q", d.LockPath())
	}
	if d.PIDPath() != "" {
		t.Fatalf("pid file must be disabled by default, got %q", d.PIDPath())
	}
}

func TestTickingRejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		if _, err := daemon.Ticking(interval, noopRoutine); !errors.Is(err, daemon.ErrConfiguration) {
			t.Fatalf("Ticking(%s) err = %v, want ErrConfiguration", interval, err)
		}
	}
	_, err := daemon.New(daemon.Identity{Name: "t"}, daemon.Strategy{Kind: daemon.KindTicking, Routine: noopRoutine})
	if !errors.Is(err, daemon.ErrConfiguration) {
		t.Fatalf("New with zero interval err = %v, want ErrConfiguration", err)
	}
}

func TestNewRejectsMissingRoutine(t *testing.T) {
	_, err := daemon.New(daemon.Identity{Name: "t"}, daemon.Continuous(nil))
	if !errors.Is(err, daemon.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestParseInterval(t *testing.T) {
	valid := map[string]time.Duration{
		"2":    2 * time.Second,
		"0.5":  500 * time.Millisecond,
		"1.5s": 1500 * time.Millisecond,
		"3m":   3 * time.Minute,
	}
	for raw, want := range valid {
		got, err := daemon.ParseInterval(raw)
		if err != nil {
			t.Fatalf("ParseInterval(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseInterval(%q) = %s, want %s", raw, got, want)
		}
	}
	for _, raw := range []string{"", "0", "-1", "-2s", "soon", "NaN", "Inf", "1e300", "9223372037"} {
		if _, err := daemon.ParseInterval(raw); !errors.Is(err, daemon.ErrConfiguration) {
			t.Fatalf("ParseInterval(%q) err = %v, want ErrConfiguration", raw, err)
		}
	}
}

func TestStatusWithoutLockIsNotRunning(t *testing.T) {
	d := newTestDaemon(t, "nolock", daemon.WithoutLock())
	status, err := d.Status()
	if err != nil || status.Running {
		t.Fatalf("Status = %+v, %v", status, err)
	}
	result, err := d.Stop()
	if err != nil || result.State != daemon.SignalNotRunning {
		t.Fatalf("Stop = %+v, %v", result, err)
	}
}

func TestStatusReclaimsStaleRecord(t *testing.T) {
	d := newTestDaemon(t, "stale")
	store := lockfile.New(d.LockPath(), true, nil)
	if err := store.Write(lockfile.Record{PID: deadPID, Group: "default"}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	status, err := d.Status()
	if err != nil || status.Running {
		t.Fatalf("Status = %+v, %v", status, err)
	}
	if _, err := os.Stat(d.LockPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale record not removed: %v", err)
	}

	if err := store.Write(lockfile.Record{PID: deadPID}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	for i := 0; i < 2; i++ {
		result, err := d.Kill()
		if err != nil || result.State != daemon.SignalNotRunning {
			t.Fatalf("Kill #%d = %+v, %v", i+1, result, err)
		}
	}
}

func TestStatusReportsLiveRecord(t *testing.T) {
	d := newTestDaemon(t, "live")
	self := lockfile.Current("ops")
	if err := lockfile.New(d.LockPath(), true, nil).Write(self); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	status, err := d.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Record != self || status.LockPath != d.LockPath() {
		t.Fatalf("Status = %+v, want running with %+v", status, self)
	}
}

func TestStatusPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permissions")
	}
	d := newTestDaemon(t, "perm")
	if err := lockfile.New(d.LockPath(), true, nil).Write(lockfile.Current("default")); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if err := os.Chmod(d.LockPath(), 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(d.LockPath(), 0o644) })

	if _, err := d.Status(); !errors.Is(err, daemon.ErrPermissionDenied) {
		t.Fatalf("Status err = %v, want ErrPermissionDenied", err)
	}
	if _, err := d.Stop(); !errors.Is(err, daemon.ErrPermissionDenied) {
		t.Fatalf("Stop err = %v, want ErrPermissionDenied", err)
	}
}

func TestStartRefusedWhenLockIsLive(t *testing.T) {
	d := newTestDaemon(t, "busy", daemon.WithCommand("/nonexistent/never-run"))
	if err := lockfile.New(d.LockPath(), true, nil).Write(lockfile.Current("default")); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	_, err := d.Start(context.Background())
	if !errors.Is(err, daemon.ErrStartRefused) {
		t.Fatalf("Start err = %v, want ErrStartRefused", err)
	}
	var refused *daemon.StartRefusedError
	if !errors.As(err, &refused) || refused.PID != os.Getpid() {
		t.Fatalf("Start err = %#v, want StartRefusedError naming pid %d", err, os.Getpid())
	}
}

func TestStartLockDirectoryNotWritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	d, err := daemon.New(daemon.Identity{Name: "ro"}, daemon.Continuous(noopRoutine),
		daemon.WithLockTemplate(lockTemplate(dir)),
		daemon.WithCommand("/nonexistent/never-run"),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if _, err := d.Start(context.Background()); !errors.Is(err, daemon.ErrLockWrite) {
		t.Fatalf("Start err = %v, want ErrLockWrite", err)
	}
}

func TestStartSpawnFailure(t *testing.T) {
	d := newTestDaemon(t, "nospawn", daemon.WithCommand(filepath.Join(t.TempDir(), "missing-binary")))
	if _, err := d.Start(context.Background()); !errors.Is(err, daemon.ErrForkFailed) {
		t.Fatalf("Start err = %v, want ErrForkFailed", err)
	}
}
