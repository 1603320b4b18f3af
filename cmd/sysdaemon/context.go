package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sysdaemon/internal/config"
	"sysdaemon/internal/daemon"
	"sysdaemon/internal/daemonctl"
	"sysdaemon/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	closer     io.Closer
	loggerErr  error

	// executable resolves the binary re-executed as the daemon child.
	executable func() (string, error)
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		executable: os.Executable,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		opts := logging.Options{
			Target:        cfg.Logging.Target,
			Level:         cfg.Logging.Level,
			File:          cfg.LogFilePath(),
			MaxSizeMB:     cfg.Logging.MaxSizeMB,
			RetentionDays: cfg.Logging.RetentionDays,
			Daemon:        cfg.Daemon.Name,
		}
		if cfg.Logging.Journal {
			opts.JournalPath = cfg.JournalPath()
		}
		logger, closer, err := logging.New(opts)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
		c.closer = closer
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

// childArgs are the arguments the daemon child is re-executed with. The
// config path is pinned so the child loads the same file even if the
// working directory changes.
func (c *commandContext) childArgs() []string {
	if c.configExists && c.configPath != "" {
		return []string{"--config", c.configPath, "start"}
	}
	return []string{"start"}
}

// buildDaemon assembles the engine for the configured daemon. The runner is
// wired as the work routine and receives forwarded stop requests.
func (c *commandContext) buildDaemon() (*daemon.Daemon, *workRunner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	runner := newWorkRunner(cfg.Work, logger)

	var strategy daemon.Strategy
	switch cfg.Daemon.Strategy {
	case config.StrategyTicking:
		strategy, err = daemon.Ticking(cfg.TickInterval(), runner.Run)
		if err != nil {
			return nil, nil, err
		}
	default:
		strategy = daemon.Continuous(runner.Run)
	}

	opts := []daemon.Option{
		daemon.WithLogger(logger),
		daemon.WithLockTemplate(cfg.Lock.Path),
		daemon.WithContinuousPause(cfg.ContinuousPause()),
		daemon.WithReadyTimeout(cfg.ReadyTimeout()),
		daemon.WithHooks(daemon.Hooks{OnStop: runner.OnStop}),
		daemon.WithExit(func(code int) {
			_ = c.close()
			os.Exit(code)
		}),
	}
	if !cfg.Lock.Enabled {
		opts = append(opts, daemon.WithoutLock())
	}
	if cfg.Lock.PIDFileEnabled {
		opts = append(opts, daemon.WithPIDFile(cfg.Lock.PIDFile))
	}
	if exe, err := c.executable(); err == nil {
		opts = append(opts, daemon.WithCommand(exe, c.childArgs()...))
	}

	d, err := daemon.New(daemon.Identity{
		Name:     cfg.Daemon.Name,
		FullName: cfg.Daemon.FullName,
		Group:    cfg.Daemon.Group,
	}, strategy, opts...)
	if err != nil {
		return nil, nil, err
	}
	return d, runner, nil
}

func (c *commandContext) controller() (*daemonctl.Controller, error) {
	d, _, err := c.buildDaemon()
	if err != nil {
		return nil, err
	}
	cfg, _ := c.ensureConfig()
	return daemonctl.New(d, daemonctl.Options{
		PollInterval: cfg.PollInterval(),
		StopTimeout:  cfg.RestartTimeout(),
		Logger:       c.logger,
	}), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// launchFailure prints the launch failure message and converts err into an
// exit code.
func launchFailure(out io.Writer, err error) error {
	fmt.Fprintf(out, "Daemon can't be launched. Reason: %v\n", err)
	return &exitError{code: 1}
}
