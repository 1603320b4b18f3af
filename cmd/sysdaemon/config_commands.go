package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sysdaemon/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		opts       config.SampleOptions
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if err := config.CreateSample(target, opts); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			if strings.TrimSpace(opts.Name) != "" {
				fmt.Fprintf(out, "Daemon name: %s\n", opts.Name)
			}
			fmt.Fprintln(out, "Set work.command to the program the daemon should run.")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&targetPath, "path", "p", "", "Where to write the file (default ~/.config/sysdaemon/config.toml)")
	flags.StringVar(&opts.Name, "name", "", "Daemon name to put in the sample")
	flags.StringVar(&opts.Strategy, "strategy", "", "continuous or ticking")
	flags.StringVar(&opts.TickInterval, "tick-interval", "", "Interval for the ticking strategy")
	flags.BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(raw string) (string, error) {
	if raw = strings.TrimSpace(raw); raw == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(raw)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", raw, err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configExists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fields := [][2]string{
				{"Daemon", cfg.Daemon.Name},
				{"Strategy", cfg.Daemon.Strategy},
				{"Lock", cfg.LockPath()},
				{"Log target", cfg.Logging.Target},
			}
			if cfg.Lock.PIDFileEnabled {
				fields = append(fields, [2]string{"PID file", cfg.PIDPath()})
			}
			if cfg.Daemon.Strategy == config.StrategyTicking {
				fields = append(fields, [2]string{"Tick interval", cfg.TickInterval().String()})
			}
			fmt.Fprintln(out, renderFields("Setting", fields))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
