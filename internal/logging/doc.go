// Package logging assembles slog loggers that deliver leveled text messages to
// the daemon log sinks: an append-only rotating file, syslog, the terminal,
// and the SQLite journal.
//
// Every sink implements the single-method Sink contract and swallows its own
// delivery failures; daemon correctness never depends on a log line being
// written. The package also carries the attribute helpers and the no-op
// logger used by tests and wiring code that cannot fail.
package logging
