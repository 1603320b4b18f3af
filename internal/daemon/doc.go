// Package daemon turns a work routine into a detached background process
// with start, status, stop and kill controls.
//
// Start re-executes the current binary in a new session with a marker in its
// environment. The re-executed child recognises the marker when it reaches
// the same Start call, claims the lock record, installs the signal router
// and runs the configured strategy until SIGTERM arrives. The parent returns
// the child pid as soon as the lock names the child.
//
// Status, Stop and Kill only consult the lock record, so any process that
// knows the daemon name and lock template can control it.
package daemon
