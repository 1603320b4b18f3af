//go:build !windows && !plan9

package logging

import (
	"fmt"
	"log/syslog"
)

// SyslogSink forwards messages to the local syslog daemon using the daemon
// facility.
type SyslogSink struct {
	writer *syslog.Writer
}

// NewSyslogSink connects to the local syslog daemon and tags messages with tag.
func NewSyslogSink(tag string) (*SyslogSink, error) {
	writer, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, fmt.Errorf("connect to syslog: %w", err)
	}
	return &SyslogSink{writer: writer}, nil
}

// Log maps level onto the matching syslog severity.
func (s *SyslogSink) Log(level Level, message string) {
	if s == nil || s.writer == nil {
		return
	}
	switch level {
	case LevelError:
		_ = s.writer.Err(message)
	case LevelWarning:
		_ = s.writer.Warning(message)
	case LevelNotice:
		_ = s.writer.Notice(message)
	case LevelInfo:
		_ = s.writer.Info(message)
	default:
		_ = s.writer.Debug(message)
	}
}

// Close disconnects from syslog.
func (s *SyslogSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
