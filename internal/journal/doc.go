// Package journal persists daemon log entries in a small SQLite database so
// the controller can show recent activity without access to syslog or the
// log file.
//
// The database is opened in WAL mode so the daemon can append while a
// controller process reads. Writes retry on SQLITE_BUSY with a bounded
// backoff.
package journal
