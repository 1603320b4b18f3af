package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

func (c *Config) normalize() error {
	c.normalizeDaemon()
	if err := c.normalizeWork(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return c.normalizeDurations()
}

func (c *Config) normalizeDaemon() {
	c.Daemon.Name = strings.TrimSpace(c.Daemon.Name)
	c.Daemon.FullName = strings.TrimSpace(c.Daemon.FullName)
	c.Daemon.Group = strings.TrimSpace(c.Daemon.Group)
	if c.Daemon.Group == "" {
		c.Daemon.Group = defaultGroup
	}
	c.Daemon.Strategy = strings.ToLower(strings.TrimSpace(c.Daemon.Strategy))
	if c.Daemon.Strategy == "" {
		c.Daemon.Strategy = defaultStrategy
	}
	if strings.TrimSpace(c.Daemon.ContinuousPause) == "" {
		c.Daemon.ContinuousPause = defaultContinuousPause
	}
}

func (c *Config) normalizeWork() error {
	command := make([]string, 0, len(c.Work.Command))
	for _, arg := range c.Work.Command {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	c.Work.Command = command
	if strings.TrimSpace(c.Work.Dir) == "" {
		c.Work.Dir = ""
		return nil
	}
	dir, err := expandPath(c.Work.Dir)
	if err != nil {
		return fmt.Errorf("work.dir: %w", err)
	}
	c.Work.Dir = dir
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Lock.Path) == "" {
		c.Lock.Path = defaultLockPath
	}
	if c.Lock.Path, err = expandPath(c.Lock.Path); err != nil {
		return fmt.Errorf("lock.path: %w", err)
	}
	if strings.TrimSpace(c.Lock.PIDFile) == "" {
		c.Lock.PIDFile = defaultPIDPath
	}
	if c.Lock.PIDFile, err = expandPath(c.Lock.PIDFile); err != nil {
		return fmt.Errorf("lock.pid_file: %w", err)
	}
	if strings.TrimSpace(c.Logging.File) == "" {
		c.Logging.File = defaultLogFile
	}
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if strings.TrimSpace(c.Logging.JournalPath) == "" {
		c.Logging.JournalPath = defaultJournalPath
	}
	if c.Logging.JournalPath, err = expandPath(c.Logging.JournalPath); err != nil {
		return fmt.Errorf("logging.journal_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Target = strings.ToLower(strings.TrimSpace(c.Logging.Target))
	if c.Logging.Target == "" {
		c.Logging.Target = defaultLogTarget
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Target == TargetFileDebug {
		c.Logging.Level = "debug"
	}
	if c.Logging.MaxSizeMB < 0 {
		c.Logging.MaxSizeMB = 0
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeDurations() error {
	fields := []struct {
		key      string
		raw      *string
		fallback string
		dst      *time.Duration
	}{
		{"daemon.continuous_pause", &c.Daemon.ContinuousPause, defaultContinuousPause, &c.continuousPause},
		{"control.restart_timeout", &c.Control.RestartTimeout, defaultRestartTimeout, &c.restartTimeout},
		{"control.poll_interval", &c.Control.PollInterval, defaultPollInterval, &c.pollInterval},
		{"control.ready_timeout", &c.Control.ReadyTimeout, defaultReadyTimeout, &c.readyTimeout},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.raw) == "" {
			*field.raw = field.fallback
		}
		value, err := ParseDuration(*field.raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, field.key, err)
		}
		*field.dst = value
	}

	c.tickInterval = 0
	if c.Daemon.Strategy == StrategyTicking && strings.TrimSpace(c.Daemon.TickInterval) != "" {
		value, err := ParseDuration(c.Daemon.TickInterval)
		if err != nil {
			return fmt.Errorf("%w: daemon.tick_interval: %v", ErrInvalid, err)
		}
		c.tickInterval = value
	}
	return nil
}

// maxSeconds is the largest bare number of seconds a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// ParseDuration accepts Go duration strings ("1m30s") or bare numbers, which
// are read as seconds ("2", "0.5"). NaN, infinities and values beyond the
// range of time.Duration are rejected.
func ParseDuration(raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if seconds, err := strconv.ParseFloat(trimmed, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return 0, fmt.Errorf("duration %q is not a finite number", raw)
		}
		if math.Abs(seconds) >= maxSeconds {
			return 0, fmt.Errorf("duration %q is out of range", raw)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	value, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return value, nil
}
