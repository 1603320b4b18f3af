package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
)

// TerminalSink writes errors and warnings to stderr and everything else to
// stdout. Lines are colored when the destination is a terminal.
type TerminalSink struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	color  bool
	now    func() time.Time
}

// NewTerminalSink builds a sink over the given streams. Nil streams default
// to os.Stdout and os.Stderr.
func NewTerminalSink(stdout, stderr io.Writer) *TerminalSink {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &TerminalSink{
		stdout: stdout,
		stderr: stderr,
		color:  isTerminal(stderr),
		now:    time.Now,
	}
}

// Log writes one line to the stream matching level.
func (s *TerminalSink) Log(level Level, message string) {
	line := FormatLine(s.now(), level, message)
	out := s.stdout
	if level == LevelError || level == LevelWarning {
		out = s.stderr
		if s.color {
			color := ansiYellow
			if level == LevelError {
				color = ansiRed
			}
			line = color + line[:len(line)-1] + ansiReset + "\n"
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(out, line)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
