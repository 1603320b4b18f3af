package signals

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"sysdaemon/internal/logging"
)

// Kind identifies a routed signal independent of the platform number.
type Kind int

const (
	Terminate Kind = iota
	User1
	User2
)

func (k Kind) String() string {
	switch k {
	case Terminate:
		return "terminate"
	case User1:
		return "user1"
	case User2:
		return "user2"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Handlers holds the callbacks for each routed signal. Nil callbacks are
// skipped. Callbacks must return quickly.
type Handlers struct {
	Terminate func()
	User1     func()
	User2     func()
}

func (h Handlers) lookup(kind Kind) func() {
	switch kind {
	case Terminate:
		return h.Terminate
	case User1:
		return h.User1
	case User2:
		return h.User2
	}
	return nil
}

// Router owns signal delivery for the process while installed.
type Router struct {
	handlers Handlers
	logger   *slog.Logger

	mu      sync.Mutex
	ch      chan os.Signal
	done    chan struct{}
	running bool
}

// NewRouter builds a router; nothing is intercepted until Install.
func NewRouter(handlers Handlers, logger *slog.Logger) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Router{
		handlers: handlers,
		logger:   logging.NewComponentLogger(logger, "signals"),
	}
}

// Install starts intercepting the routed signals. Calling Install on an
// installed router is a no-op.
func (r *Router) Install() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.ch = make(chan os.Signal, 4)
	r.done = make(chan struct{})
	signal.Notify(r.ch, routedSignals()...)
	r.running = true
	go r.loop(r.ch, r.done)
	r.logger.Debug("signal handlers installed")
}

// Uninstall restores default signal disposition and waits for the
// dispatcher to finish the callback it may be running.
func (r *Router) Uninstall() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	signal.Stop(r.ch)
	close(r.ch)
	done := r.done
	r.running = false
	r.mu.Unlock()

	<-done
	r.logger.Debug("signal handlers removed")
}

func (r *Router) loop(ch <-chan os.Signal, done chan<- struct{}) {
	defer close(done)
	for sig := range ch {
		kind, ok := kindOf(sig)
		if !ok {
			continue
		}
		r.dispatch(kind, sig)
	}
}

func (r *Router) dispatch(kind Kind, sig os.Signal) {
	handler := r.handlers.lookup(kind)
	if handler == nil {
		return
	}
	r.logger.Debug("signal received",
		logging.String("signal", sig.String()),
		logging.String("kind", kind.String()),
	)
	defer func() {
		if rec := recover(); rec != nil {
			logging.ErrorWithContext(r.logger, "signal handler panicked", "signal_handler_panic",
				logging.String("kind", kind.String()),
				logging.Any("panic", rec),
			)
		}
	}()
	handler()
}
