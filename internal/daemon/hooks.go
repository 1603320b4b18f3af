package daemon

import "context"

// Hooks customise the child's reaction to lifecycle events. Every field is
// optional. Signal hooks run on the signal dispatcher and must return
// quickly.
type Hooks struct {
	// OnStart runs once in the child after the lock is claimed and before
	// the first iteration. An error aborts the run.
	OnStart func(ctx context.Context) error
	// OnStop receives a continuous daemon's stop request. It must call stop
	// for the loop to end. Ticking daemons stop without consulting it.
	OnStop func(stop func())
	// OnUser1 and OnUser2 run on SIGUSR1 and SIGUSR2.
	OnUser1 func()
	OnUser2 func()
}
