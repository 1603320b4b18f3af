package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sysdaemon/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// ErrExists reports that CreateSample found a file it was not allowed to replace.
var ErrExists = errors.New("config file already exists")

// SampleOptions customizes the generated sample. Empty fields keep the
// sample defaults.
type SampleOptions struct {
	Name         string
	Strategy     string
	TickInterval string
	Overwrite    bool
}

// RenderSample returns the sample configuration with opts applied.
func RenderSample(opts SampleOptions) string {
	out := sampleConfig
	if name := strings.TrimSpace(opts.Name); name != "" {
		out = strings.Replace(out, `name = "worker"`, "name = "+strconv.Quote(name), 1)
	}
	if strategy := strings.TrimSpace(opts.Strategy); strategy != "" {
		out = strings.Replace(out, `strategy = "continuous"`, "strategy = "+strconv.Quote(strategy), 1)
	}
	if interval := strings.TrimSpace(opts.TickInterval); interval != "" {
		out = strings.Replace(out, `tick_interval = ""`, "tick_interval = "+strconv.Quote(interval), 1)
	}
	return out
}

// CreateSample writes the rendered sample to path. The result is checked
// with Load-time validation before anything touches the disk.
func CreateSample(path string, opts SampleOptions) error {
	rendered := RenderSample(opts)
	cfg := Default()
	if err := decodeInto(&cfg, []byte(rendered)); err != nil {
		return err
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}

	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w at %s (use --overwrite to replace it)", ErrExists, path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("check config path: %w", err)
		}
	}
	if err := fileutil.EnsureParentDir(path, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
