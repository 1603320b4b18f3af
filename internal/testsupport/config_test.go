package testsupport_test

import (
	"strings"
	"testing"

	"sysdaemon/internal/config"
	"sysdaemon/internal/testsupport"
)

func TestNewConfigIsolatesPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithName("iso"), testsupport.WithTicking("1"))
	base := testsupport.BaseDir(cfg)
	for _, path := range []string{cfg.LockPath(), cfg.PIDPath(), cfg.LogFilePath(), cfg.JournalPath()} {
		if !strings.HasPrefix(path, base) {
			t.Fatalf("%s escapes %s", path, base)
		}
		if !strings.Contains(path, "daemon-iso") {
			t.Fatalf("%s does not carry the daemon name", path)
		}
	}
	if cfg.TickInterval().Seconds() != 1 {
		t.Fatalf("TickInterval = %s", cfg.TickInterval())
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCommand("true"), testsupport.WithJournal())
	path := testsupport.WriteConfig(t, cfg)

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("Load resolved %q exists=%v", resolved, exists)
	}
	if loaded.LockPath() != cfg.LockPath() || !loaded.Logging.Journal || len(loaded.Work.Command) != 1 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}
