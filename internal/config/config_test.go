package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sysdaemon/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "sysdaemon", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Daemon.Name != "worker" {
		t.Fatalf("unexpected default name %q", cfg.Daemon.Name)
	}
	if cfg.Daemon.Strategy != config.StrategyContinuous {
		t.Fatalf("unexpected default strategy %q", cfg.Daemon.Strategy)
	}
	if cfg.ContinuousPause() != 2*time.Second {
		t.Fatalf("unexpected continuous pause %s", cfg.ContinuousPause())
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.PollInterval())
	}
	if cfg.RestartTimeout() != 30*time.Second {
		t.Fatalf("unexpected restart timeout %s", cfg.RestartTimeout())
	}
	if !cfg.Lock.Enabled {
		t.Fatal("expected lock usage enabled by default")
	}
	wantLock := filepath.Join(os.TempDir(), "daemon-worker.lock")
	if cfg.LockPath() != wantLock {
		t.Fatalf("unexpected lock path: got %q want %q", cfg.LockPath(), wantLock)
	}
	if cfg.LogFilePath() != "/var/log/daemon-worker.log" {
		t.Fatalf("unexpected log path %q", cfg.LogFilePath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sysdaemon.toml")

	type payload struct {
		Daemon struct {
			Name         string `toml:"name"`
			Strategy     string `toml:"strategy"`
			TickInterval string `toml:"tick_interval"`
		} `toml:"daemon"`
		Work struct {
			Command []string `toml:"command"`
		} `toml:"work"`
		Lock struct {
			Path string `toml:"path"`
		} `toml:"lock"`
		Logging struct {
			Target string `toml:"target"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Daemon.Name = "mailer"
	custom.Daemon.Strategy = "Ticking"
	custom.Daemon.TickInterval = "1.5"
	custom.Work.Command = []string{" /bin/true ", ""}
	custom.Lock.Path = filepath.Join(tempDir, "{name}.lock")
	custom.Logging.Target = "file_debug"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to be used, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Daemon.Strategy != config.StrategyTicking {
		t.Fatalf("expected strategy to be normalized, got %q", cfg.Daemon.Strategy)
	}
	if cfg.TickInterval() != 1500*time.Millisecond {
		t.Fatalf("unexpected tick interval %s", cfg.TickInterval())
	}
	if len(cfg.Work.Command) != 1 || cfg.Work.Command[0] != "/bin/true" {
		t.Fatalf("unexpected work command %#v", cfg.Work.Command)
	}
	if cfg.LockPath() != filepath.Join(tempDir, "mailer.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected file_debug target to force debug level, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadTickInterval(t *testing.T) {
	cases := []struct {
		name     string
		interval string
	}{
		{"missing", ""},
		{"zero", "0"},
		{"negative", "-1s"},
		{"non-numeric", "soon"},
		{"nan", "NaN"},
		{"infinite", "Inf"},
		{"overflow", "1e300"},
		{"just past max", "9223372037"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Daemon.Strategy = config.StrategyTicking
			cfg.Daemon.TickInterval = tc.interval
			err := cfg.Finalize()
			if err == nil {
				t.Fatalf("expected error for tick interval %q", tc.interval)
			}
			if !errors.Is(err, config.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty name", func(c *config.Config) { c.Daemon.Name = " " }, "daemon.name"},
		{"path name", func(c *config.Config) { c.Daemon.Name = "../etc" }, "daemon.name"},
		{"strategy", func(c *config.Config) { c.Daemon.Strategy = "sometimes" }, "daemon.strategy"},
		{"target", func(c *config.Config) { c.Logging.Target = "email" }, "logging.target"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"poll", func(c *config.Config) { c.Control.PollInterval = "0" }, "control.poll_interval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Finalize()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error %q", tc.want, err)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"2":     2 * time.Second,
		"0.25":  250 * time.Millisecond,
		"1m30s": 90 * time.Second,
		" 3s ":  3 * time.Second,
	}
	for raw, want := range cases {
		got, err := config.ParseDuration(raw)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseDuration(%q) = %s, want %s", raw, got, want)
		}
	}
	rejected := map[string]string{
		"later":      "invalid duration",
		"NaN":        "not a finite number",
		"Inf":        "not a finite number",
		"-Inf":       "not a finite number",
		"1e400":      "not a finite number",
		"1e300":      "out of range",
		"9223372037": "out of range",
	}
	for raw, want := range rejected {
		got, err := config.ParseDuration(raw)
		if err == nil {
			t.Fatalf("ParseDuration(%q) = %s, want error", raw, got)
		}
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("ParseDuration(%q) err = %v, want %q", raw, err, want)
		}
	}
}

func TestLoadRejectsInfiniteTickInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[daemon]\nname = \"inf\"\nstrategy = \"ticking\"\ntick_interval = \"Inf\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := config.Load(path)
	if !errors.Is(err, config.ErrInvalid) || !strings.Contains(err.Error(), "not a finite number") {
		t.Fatalf("Load err = %v, want ErrInvalid naming a non-finite interval", err)
	}
}

func TestCreateSampleRoundTrip(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target, config.SampleOptions{}); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Daemon.Name != "worker" {
		t.Fatalf("unexpected sample name %q", cfg.Daemon.Name)
	}
}

func TestCreateSampleAppliesOptions(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	opts := config.SampleOptions{Name: "report-builder", Strategy: config.StrategyTicking, TickInterval: "30s"}
	if err := config.CreateSample(target, opts); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, _, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daemon.Name != "report-builder" || cfg.Daemon.Strategy != config.StrategyTicking {
		t.Fatalf("options not applied: %+v", cfg.Daemon)
	}
	if cfg.TickInterval() != 30*time.Second {
		t.Fatalf("tick interval = %s", cfg.TickInterval())
	}

	err = config.CreateSample(target, opts)
	if !errors.Is(err, config.ErrExists) {
		t.Fatalf("second CreateSample err = %v, want ErrExists", err)
	}
	opts.Overwrite = true
	if err := config.CreateSample(target, opts); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestCreateSampleRejectsInvalidOptions(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	err := config.CreateSample(target, config.SampleOptions{Strategy: config.StrategyTicking})
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("CreateSample err = %v, want ErrInvalid", err)
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatal("invalid sample must not be written")
	}
}

func TestPathTemplatesResolveAgainstName(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.Daemon.Name = "cron"
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got, want := cfg.LockPath(), filepath.Join(os.TempDir(), "daemon-cron.lock"); got != want {
		t.Fatalf("LockPath = %q, want %q", got, want)
	}
	if got, want := cfg.PIDPath(), filepath.Join(os.TempDir(), "daemon-cron.pid"); got != want {
		t.Fatalf("PIDPath = %q, want %q", got, want)
	}
}
