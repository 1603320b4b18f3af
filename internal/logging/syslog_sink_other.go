//go:build windows || plan9

package logging

import "errors"

// SyslogSink is unavailable on this platform.
type SyslogSink struct{}

// NewSyslogSink always fails on platforms without syslog.
func NewSyslogSink(string) (*SyslogSink, error) {
	return nil, errors.New("syslog is not supported on this platform")
}

func (s *SyslogSink) Log(Level, string) {}

func (s *SyslogSink) Close() error { return nil }
