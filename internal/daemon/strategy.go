package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sysdaemon/internal/config"
)

// Routine is one unit of work. The context is the daemon's lifetime
// context; it is not cancelled by SIGTERM, so a routine in flight when the
// stop request arrives runs to completion.
type Routine func(ctx context.Context) error

// Kind selects how a strategy schedules its routine.
type Kind string

const (
	KindContinuous Kind = "continuous"
	KindTicking    Kind = "ticking"
)

// DefaultContinuousPause separates consecutive continuous iterations.
const DefaultContinuousPause = 2 * time.Second

// Strategy pairs a routine with its scheduling policy.
type Strategy struct {
	Kind     Kind
	Interval time.Duration
	Routine  Routine
}

// Continuous runs routine back to back with a short pause in between.
func Continuous(routine Routine) Strategy {
	return Strategy{Kind: KindContinuous, Routine: routine}
}

// Ticking runs routine, then sleeps interval, until stopped.
func Ticking(interval time.Duration, routine Routine) (Strategy, error) {
	if interval <= 0 {
		return Strategy{}, fmt.Errorf("%w: tick interval must be positive, got %s", ErrConfiguration, interval)
	}
	return Strategy{Kind: KindTicking, Interval: interval, Routine: routine}, nil
}

// ParseInterval reads a tick interval given either as a Go duration ("1.5s")
// or as a bare number of seconds ("2", "0.5"). The result must be positive.
func ParseInterval(raw string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: tick interval is required", ErrConfiguration)
	}
	interval, err := config.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: tick interval: %v", ErrConfiguration, err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("%w: tick interval must be positive, got %q", ErrConfiguration, raw)
	}
	return interval, nil
}

func (s Strategy) validate() error {
	switch s.Kind {
	case KindContinuous:
	case KindTicking:
		if s.Interval <= 0 {
			return fmt.Errorf("%w: tick interval must be positive, got %s", ErrConfiguration, s.Interval)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrConfiguration, s.Kind)
	}
	if s.Routine == nil {
		return fmt.Errorf("%w: %s strategy requires a routine", ErrConfiguration, s.Kind)
	}
	return nil
}
