package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"sysdaemon/internal/journal"
)

// Log targets understood by New.
const (
	TargetSyslog    = "syslog"
	TargetFile      = "file"
	TargetFileDebug = "file_debug"
	TargetTerminal  = "terminal"
)

// Options describes logger construction parameters.
type Options struct {
	Target        string
	Level         string
	File          string
	MaxSizeMB     int
	RetentionDays int
	// JournalPath mirrors every record into the SQLite journal when set.
	JournalPath string
	// Daemon tags syslog messages and journal entries.
	Daemon string
	Stdout io.Writer
	Stderr io.Writer
}

// New constructs a slog logger that forwards to the sink selected by
// opts.Target, teed into the journal when configured. The returned closer
// releases files and connections held by the sinks.
//
// An unreachable syslog daemon is not fatal: the logger falls back to the
// terminal sink and reports the fallback on stderr.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	target := strings.ToLower(strings.TrimSpace(opts.Target))
	if target == "" {
		target = TargetSyslog
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	if target == TargetFileDebug {
		level = LevelDebug
	}

	closers := &closerGroup{}
	var primary Sink
	switch target {
	case TargetSyslog:
		tag := opts.Daemon
		if tag == "" {
			tag = "sysdaemon"
		}
		sink, err := NewSyslogSink(tag)
		if err != nil {
			stderr := opts.Stderr
			if stderr == nil {
				stderr = os.Stderr
			}
			fmt.Fprintf(stderr, "syslog unavailable (%v); logging to terminal\n", err)
			primary = NewTerminalSink(opts.Stdout, opts.Stderr)
			break
		}
		primary = sink
		closers.add(sink)
	case TargetFile, TargetFileDebug:
		if strings.TrimSpace(opts.File) == "" {
			return nil, nil, errors.New("log target file requires a file path")
		}
		sink, err := NewFileSink(opts.File, opts.MaxSizeMB, opts.RetentionDays)
		if err != nil {
			return nil, nil, err
		}
		PruneRotated(opts.File, opts.RetentionDays, time.Now())
		primary = sink
		closers.add(sink)
	case TargetTerminal:
		primary = NewTerminalSink(opts.Stdout, opts.Stderr)
	default:
		return nil, nil, fmt.Errorf("log target: unsupported value %q", opts.Target)
	}

	handlers := []slog.Handler{NewSinkHandler(primary, level.Slog())}
	if path := strings.TrimSpace(opts.JournalPath); path != "" {
		j, err := journal.Open(path)
		if err != nil {
			_ = closers.Close()
			return nil, nil, fmt.Errorf("open log journal: %w", err)
		}
		closers.add(j)
		handlers = append(handlers, NewSinkHandler(NewJournalSink(j, opts.Daemon), level.Slog()))
	}

	return slog.New(TeeHandler(handlers...)), closers, nil
}

type closerGroup struct {
	closers []io.Closer
}

func (g *closerGroup) add(c io.Closer) {
	g.closers = append(g.closers, c)
}

// Close closes every member in reverse order and joins their errors.
func (g *closerGroup) Close() error {
	var errs []error
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	g.closers = nil
	return errors.Join(errs...)
}
