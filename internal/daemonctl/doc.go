// Package daemonctl implements the controller-side lifecycle operations that
// need more than a single signal: stopping and waiting for the daemon to
// release its lock, restarting, and force-killing.
package daemonctl
