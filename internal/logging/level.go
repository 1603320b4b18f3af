package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Level is one of the fixed daemon log levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelWarning
	LevelError
)

// SlogNotice sits between slog's info and warn levels.
const SlogNotice = slog.Level(2)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNotice:
		return "notice"
	case LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// Slog returns the slog level used when records at l pass through a *slog.Logger.
func (l Level) Slog() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarning:
		return slog.LevelWarn
	case LevelNotice:
		return SlogNotice
	case LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// FromSlog folds an arbitrary slog level onto the closest daemon level.
func FromSlog(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarning
	case level >= SlogNotice:
		return LevelNotice
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// ParseLevel maps a configured level name to a Level. "warn" is accepted as
// an alias of "warning".
func ParseLevel(value string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "notice":
		return LevelNotice, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("log level: unsupported value %q", value)
	}
}

// Notice logs msg at the notice level.
func Notice(logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), SlogNotice, msg, attrs...)
}
