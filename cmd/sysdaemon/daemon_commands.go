package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"sysdaemon/internal/daemon"
	"sysdaemon/internal/daemonctl"
	"sysdaemon/internal/lockfile"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:         "start",
		Short:       "Start the daemon in the background",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			stdout := cmd.OutOrStdout()
			d, _, err := ctx.buildDaemon()
			if err != nil {
				return launchFailure(stdout, err)
			}
			pid, err := d.Start(cmd.Context())
			if err != nil {
				return launchFailure(stdout, err)
			}
			fmt.Fprintf(stdout, "Successfully started. Pid is %d\n", pid)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			c, err := ctx.controller()
			if err != nil {
				return err
			}
			status, err := c.Status()
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			if !status.Running {
				fmt.Fprintln(stdout, renderStatusLine(statusStopped, "Daemon is not running.", colorize))
				if !cfg.Lock.Enabled {
					fmt.Fprintln(stdout, "Lock file disabled; status cannot be determined.")
				}
				return nil
			}
			fmt.Fprintln(stdout, renderStatusLine(statusRunning, fmt.Sprintf("Daemon is running. Pid: %d", status.Record.PID), colorize))
			fields := [][2]string{
				{"Name", cfg.Daemon.Name},
				{"PID", strconv.Itoa(status.Record.PID)},
				{"UID", strconv.Itoa(status.Record.UID)},
				{"GID", strconv.Itoa(status.Record.GID)},
				{"Group", status.Record.Group},
				{"Lock", status.LockPath},
			}
			if cfg.Lock.PIDFileEnabled {
				fields = append(fields, [2]string{"PID file", describePIDFile(cfg.PIDPath(), status.Record.PID)})
			}
			fmt.Fprintln(stdout, renderFields("Field", fields))
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon and wait for it to exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			c, err := ctx.controller()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := c.StopAndWait(cmd.Context())
			if !result.WasRunning && err == nil {
				fmt.Fprintln(stdout, "Daemon is not running.")
				return nil
			}
			if err != nil {
				return stopFailure(stdout, result, err)
			}
			fmt.Fprintf(stdout, "Daemon stopped (pid %d).\n", result.Signal.PID)
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:         "restart",
		Short:       "Stop the daemon if running, then start it",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			stdout := cmd.OutOrStdout()
			c, err := ctx.controller()
			if err != nil {
				return launchFailure(stdout, err)
			}
			result, err := c.Restart(cmd.Context())
			if result.WasRunning && result.Stop.Stopped {
				fmt.Fprintf(stdout, "Daemon stopped (pid %d).\n", result.Stop.Signal.PID)
			}
			if err != nil {
				if errors.Is(err, daemonctl.ErrStopTimeout) || result.Stop.Signal.State == daemon.SignalRejected {
					return stopFailure(stdout, result.Stop, err)
				}
				return launchFailure(stdout, err)
			}
			fmt.Fprintf(stdout, "Successfully started. Pid is %d\n", result.PID)
			return nil
		},
	}

	killCmd := &cobra.Command{
		Use:   "kill",
		Short: "Force-kill the daemon without graceful shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			c, err := ctx.controller()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := c.Kill()
			if err != nil {
				return err
			}
			switch result.State {
			case daemon.SignalNotRunning:
				fmt.Fprintln(stdout, "Daemon is not running.")
			case daemon.SignalSent:
				fmt.Fprintf(stdout, "Kill signal sent to pid %d.\n", result.PID)
			default:
				fmt.Fprintf(stdout, "Kill signal rejected for pid %d: %v\n", result.PID, result.Reason)
				return &exitError{code: 1}
			}
			return nil
		},
	}

	return []*cobra.Command{startCmd, statusCmd, stopCmd, restartCmd, killCmd}
}

// describePIDFile summarises the pid file against the pid in the lock record.
func describePIDFile(path string, lockPID int) string {
	pid, err := lockfile.NewPIDFile(path).Read()
	switch {
	case err != nil:
		return fmt.Sprintf("%s (unreadable: %v)", path, err)
	case pid == 0:
		return path + " (missing)"
	case pid != lockPID:
		return fmt.Sprintf("%s (names pid %d, lock names %d)", path, pid, lockPID)
	}
	return path
}

func stopFailure(out io.Writer, result daemonctl.StopResult, err error) error {
	if errors.Is(err, daemonctl.ErrStopTimeout) {
		fmt.Fprintf(out, "Daemon (pid %d) did not stop in time: %v\n", result.Signal.PID, err)
	} else {
		fmt.Fprintf(out, "Daemon could not be stopped: %v\n", err)
	}
	return &exitError{code: 1}
}
