package daemon

import "fmt"

// SignalState classifies the outcome of Stop and Kill.
type SignalState string

const (
	SignalNotRunning SignalState = "not_running"
	SignalSent       SignalState = "sent"
	SignalRejected   SignalState = "rejected"
)

// SignalResult captures a stop or kill attempt. Sent means the OS accepted
// the signal, not that the process has exited.
type SignalResult struct {
	State  SignalState
	PID    int
	Reason error
}

// Stop asks the running daemon to finish its current iteration and exit.
func (d *Daemon) Stop() (SignalResult, error) {
	return d.signal(false)
}

// Kill terminates the running daemon immediately. Its lock record is left
// behind and reclaimed by the next Start or Status.
func (d *Daemon) Kill() (SignalResult, error) {
	return d.signal(true)
}

func (d *Daemon) signal(force bool) (SignalResult, error) {
	status, err := d.Status()
	if err != nil {
		return SignalResult{}, err
	}
	if !status.Running {
		return SignalResult{State: SignalNotRunning}, nil
	}
	pid := status.Record.PID
	if err := sendSignal(pid, force); err != nil {
		return SignalResult{State: SignalRejected, PID: pid, Reason: fmt.Errorf("signal pid %d: %w", pid, err)}, nil
	}
	return SignalResult{State: SignalSent, PID: pid}, nil
}
