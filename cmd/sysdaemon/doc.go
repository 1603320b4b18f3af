// Command sysdaemon runs a configured command as a background daemon and
// controls it: start, status, stop, restart, kill, plus journal and
// configuration helpers.
//
// The start verb re-executes this binary; the re-executed copy reaches the
// same verb, detects that it is the daemon child and runs the work loop
// instead of returning.
package main
