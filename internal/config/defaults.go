package config

const (
	defaultName            = "worker"
	defaultGroup           = "default"
	defaultStrategy        = StrategyContinuous
	defaultContinuousPause = "2s"
	defaultLockPath        = "{tmp}/daemon-{name}.lock"
	defaultPIDPath         = "{tmp}/daemon-{name}.pid"
	defaultLogFile         = "/var/log/daemon-{name}.log"
	defaultJournalPath     = "{tmp}/daemon-{name}.journal.db"
	defaultLogTarget       = TargetSyslog
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 10
	defaultRetentionDays   = 14
	defaultRestartTimeout  = "30s"
	defaultPollInterval    = "1s"
	defaultReadyTimeout    = "5s"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Daemon: Daemon{
			Name:            defaultName,
			Group:           defaultGroup,
			Strategy:        defaultStrategy,
			ContinuousPause: defaultContinuousPause,
		},
		Lock: Lock{
			Enabled:        true,
			Path:           defaultLockPath,
			PIDFileEnabled: true,
			PIDFile:        defaultPIDPath,
		},
		Logging: Logging{
			Target:        defaultLogTarget,
			File:          defaultLogFile,
			Level:         defaultLogLevel,
			MaxSizeMB:     defaultLogMaxSizeMB,
			RetentionDays: defaultRetentionDays,
			JournalPath:   defaultJournalPath,
		},
		Control: Control{
			RestartTimeout: defaultRestartTimeout,
			PollInterval:   defaultPollInterval,
			ReadyTimeout:   defaultReadyTimeout,
		},
	}
}
