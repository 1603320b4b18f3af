// Package lockfile owns the on-disk record that says which process is the
// live instance of a named daemon.
//
// The record is a small JSON document written atomically next to a guard
// file. The guard is an advisory flock held only while a caller checks and
// then rewrites or deletes the record, so competing starters and status
// readers never act on a half-observed state. Records naming a dead process
// are reclaimed on read. An optional plain pid file is maintained for
// external tooling and is never consulted for status.
package lockfile
