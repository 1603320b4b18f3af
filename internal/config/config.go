package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sysdaemon/internal/lockfile"
)

// Strategy names accepted by daemon.strategy.
const (
	StrategyContinuous = "continuous"
	StrategyTicking    = "ticking"
)

// Log targets accepted by logging.target.
const (
	TargetSyslog    = "syslog"
	TargetFile      = "file"
	TargetFileDebug = "file_debug"
	TargetTerminal  = "terminal"
)

// Daemon describes the identity and execution strategy of the daemon.
type Daemon struct {
	Name            string `toml:"name"`
	FullName        string `toml:"full_name"`
	Group           string `toml:"group"`
	Strategy        string `toml:"strategy"`
	TickInterval    string `toml:"tick_interval"`
	ContinuousPause string `toml:"continuous_pause"`
}

// Work describes the command the CLI runs on every iteration or tick.
type Work struct {
	Command     []string `toml:"command"`
	Dir         string   `toml:"dir"`
	ForwardStop bool     `toml:"forward_stop"`
}

// Lock contains lock file and pid file settings.
type Lock struct {
	Enabled        bool   `toml:"enabled"`
	Path           string `toml:"path"`
	PIDFileEnabled bool   `toml:"pid_file_enabled"`
	PIDFile        string `toml:"pid_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Target        string `toml:"target"`
	File          string `toml:"file"`
	Level         string `toml:"level"`
	MaxSizeMB     int    `toml:"max_size_mb"`
	RetentionDays int    `toml:"retention_days"`
	Journal       bool   `toml:"journal"`
	JournalPath   string `toml:"journal_path"`
}

// Control contains timing knobs used by the lifecycle controller.
type Control struct {
	RestartTimeout string `toml:"restart_timeout"`
	PollInterval   string `toml:"poll_interval"`
	ReadyTimeout   string `toml:"ready_timeout"`
}

// Config encapsulates all configuration values for sysdaemon.
//
// Configuration sections:
//   - Daemon: identity and execution strategy
//   - Work: command executed by the CLI work routine
//   - Lock: lock file and pid file locations
//   - Logging: sink selection, level, rotation, and journal
//   - Control: stop/restart wait timing
type Config struct {
	Daemon  Daemon  `toml:"daemon"`
	Work    Work    `toml:"work"`
	Lock    Lock    `toml:"lock"`
	Logging Logging `toml:"logging"`
	Control Control `toml:"control"`

	tickInterval    time.Duration
	continuousPause time.Duration
	restartTimeout  time.Duration
	pollInterval    time.Duration
	readyTimeout    time.Duration
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sysdaemon/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and durations parsed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		if err := decodeInto(&cfg, data); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeInto(cfg *Config, data []byte) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Finalize normalizes and validates a config built in code rather than loaded
// from disk.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sysdaemon.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// TickInterval returns the parsed tick interval for the ticking strategy.
func (c *Config) TickInterval() time.Duration { return c.tickInterval }

// ContinuousPause returns the pause between continuous iterations.
func (c *Config) ContinuousPause() time.Duration { return c.continuousPause }

// RestartTimeout bounds how long stop and restart wait for the daemon to exit.
func (c *Config) RestartTimeout() time.Duration { return c.restartTimeout }

// PollInterval is the cadence at which stop-and-wait re-checks status.
func (c *Config) PollInterval() time.Duration { return c.pollInterval }

// ReadyTimeout bounds how long start waits for the child to claim its lock.
func (c *Config) ReadyTimeout() time.Duration { return c.readyTimeout }

// LockPath returns the lock file path with {tmp} and {name} resolved.
func (c *Config) LockPath() string { return c.resolveTemplate(c.Lock.Path) }

// PIDPath returns the pid file path with {tmp} and {name} resolved.
func (c *Config) PIDPath() string { return c.resolveTemplate(c.Lock.PIDFile) }

// LogFilePath returns the log file path with {tmp} and {name} resolved.
func (c *Config) LogFilePath() string { return c.resolveTemplate(c.Logging.File) }

// JournalPath returns the journal database path with {tmp} and {name} resolved.
func (c *Config) JournalPath() string { return c.resolveTemplate(c.Logging.JournalPath) }

func (c *Config) resolveTemplate(template string) string {
	return lockfile.ResolvePath(template, c.Daemon.Name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	if strings.HasPrefix(pathValue, "{tmp}") {
		return pathValue, nil
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
