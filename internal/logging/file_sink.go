package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sysdaemon/internal/fileutil"
)

const rotationSuffixLayout = "20060102T150405.000"

// FileSink appends formatted lines to a log file and rotates it once it grows
// past a size limit. Rotated files keep the original name plus a timestamp
// suffix.
type FileSink struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	size     int64
	maxBytes int64
	keepDays int
	now      func() time.Time
}

// NewFileSink opens path for appending. maxSizeMB of zero disables rotation;
// rotated files older than retentionDays are pruned after each rotation.
func NewFileSink(path string, maxSizeMB, retentionDays int) (*FileSink, error) {
	if err := fileutil.EnsureParentDir(path, 0o755); err != nil {
		return nil, err
	}
	sink := &FileSink{
		path:     path,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		keepDays: retentionDays,
		now:      time.Now,
	}
	if err := sink.open(); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *FileSink) open() error {
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", s.path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file %s: %w", s.path, err)
	}
	s.file = file
	s.size = info.Size()
	return nil
}

// Path returns the active log file path.
func (s *FileSink) Path() string {
	return s.path
}

// Log appends one line. Write failures are dropped.
func (s *FileSink) Log(level Level, message string) {
	line := FormatLine(s.now(), level, message)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	if s.maxBytes > 0 && s.size > 0 && s.size+int64(len(line)) > s.maxBytes {
		s.rotate()
		if s.file == nil {
			return
		}
	}
	n, _ := s.file.WriteString(line)
	s.size += int64(n)
}

func (s *FileSink) rotate() {
	_ = s.file.Close()
	s.file = nil
	rotated := s.path + "." + s.now().Format(rotationSuffixLayout)
	_ = os.Rename(s.path, rotated)
	_ = s.open()
	PruneRotated(s.path, s.keepDays, s.now())
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
