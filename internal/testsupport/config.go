package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sysdaemon/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a finalized config whose lock, pid, log and journal
// files all live in a per-test temp directory. Logging goes to the terminal
// sink and the controller polls quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Daemon.Name = "test-worker"
	cfgVal.Lock.Path = filepath.Join(base, "daemon-{name}.lock")
	cfgVal.Lock.PIDFile = filepath.Join(base, "daemon-{name}.pid")
	cfgVal.Logging.Target = config.TargetTerminal
	cfgVal.Logging.File = filepath.Join(base, "logs", "daemon-{name}.log")
	cfgVal.Logging.JournalPath = filepath.Join(base, "daemon-{name}.journal.db")
	cfgVal.Control.PollInterval = "50ms"
	cfgVal.Control.RestartTimeout = "10s"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Finalize(); err != nil {
		t.Fatalf("finalize test config: %v", err)
	}
	return builder.cfg
}

// WithName overrides the daemon name.
func WithName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.Name = name
	}
}

// WithTicking switches the config to the ticking strategy.
func WithTicking(interval string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.Strategy = config.StrategyTicking
		b.cfg.Daemon.TickInterval = interval
	}
}

// WithCommand sets the work command.
func WithCommand(argv ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Work.Command = argv
	}
}

// WithJournal mirrors logs into the journal database.
func WithJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.Journal = true
	}
}

// WithFileLogging sends logs to the file target under the temp directory.
func WithFileLogging() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.Target = config.TargetFile
	}
}

// BaseDir returns the directory NewConfig placed every file under.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.LockPath())
}

// WriteConfig serializes cfg as TOML next to its other files and returns the
// path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
