package logging

import (
	"context"
	"time"

	"sysdaemon/internal/journal"
)

const journalWriteTimeout = 2 * time.Second

// JournalSink mirrors messages into the SQLite journal.
type JournalSink struct {
	journal *journal.Journal
	daemon  string
}

// NewJournalSink tags every entry with the daemon name.
func NewJournalSink(j *journal.Journal, daemon string) *JournalSink {
	return &JournalSink{journal: j, daemon: daemon}
}

// Log appends one entry; failures are dropped.
func (s *JournalSink) Log(level Level, message string) {
	if s == nil || s.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	_ = s.journal.Append(ctx, journal.Entry{
		Level:   level.String(),
		Daemon:  s.daemon,
		Message: message,
	})
}
