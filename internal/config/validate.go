package config

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalid marks configuration validation failures.
var ErrInvalid = errors.New("invalid configuration")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateControl()
}

func (c *Config) validateDaemon() error {
	if c.Daemon.Name == "" {
		return fmt.Errorf("%w: daemon.name must be set", ErrInvalid)
	}
	if !namePattern.MatchString(c.Daemon.Name) {
		return fmt.Errorf("%w: daemon.name %q may only contain letters, digits, '.', '_' and '-'", ErrInvalid, c.Daemon.Name)
	}
	switch c.Daemon.Strategy {
	case StrategyContinuous:
		if c.continuousPause < 0 {
			return fmt.Errorf("%w: daemon.continuous_pause must not be negative", ErrInvalid)
		}
	case StrategyTicking:
		if c.Daemon.TickInterval == "" {
			return fmt.Errorf("%w: daemon.tick_interval is required for the ticking strategy", ErrInvalid)
		}
		if c.tickInterval <= 0 {
			return fmt.Errorf("%w: daemon.tick_interval must be positive, got %q", ErrInvalid, c.Daemon.TickInterval)
		}
	default:
		return fmt.Errorf("%w: daemon.strategy must be %q or %q, got %q", ErrInvalid, StrategyContinuous, StrategyTicking, c.Daemon.Strategy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Target {
	case TargetSyslog, TargetFile, TargetFileDebug, TargetTerminal:
	default:
		return fmt.Errorf("%w: logging.target %q is not one of syslog, file, file_debug, terminal", ErrInvalid, c.Logging.Target)
	}
	switch c.Logging.Level {
	case "error", "warning", "notice", "info", "debug":
	default:
		return fmt.Errorf("%w: logging.level %q is not one of error, warning, notice, info, debug", ErrInvalid, c.Logging.Level)
	}
	return nil
}

func (c *Config) validateControl() error {
	if c.restartTimeout <= 0 {
		return fmt.Errorf("%w: control.restart_timeout must be positive", ErrInvalid)
	}
	if c.pollInterval <= 0 {
		return fmt.Errorf("%w: control.poll_interval must be positive", ErrInvalid)
	}
	if c.readyTimeout < 0 {
		return fmt.Errorf("%w: control.ready_timeout must not be negative", ErrInvalid)
	}
	return nil
}
