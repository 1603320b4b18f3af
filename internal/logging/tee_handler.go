package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler delivers each record to every destination that accepts its
// level. A failing destination does not stop delivery to the others.
type teeHandler struct {
	dests []slog.Handler
}

// TeeHandler duplicates records across handlers. Nil handlers are skipped;
// a single remaining handler is returned as is.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	dests := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			dests = append(dests, h)
		}
	}
	switch len(dests) {
	case 0:
		return NoopHandler{}
	case 1:
		return dests[0]
	}
	return &teeHandler{dests: dests}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, dest := range t.dests {
		if dest.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	last := len(t.dests) - 1
	for i, dest := range t.dests {
		if !dest.Enabled(ctx, record.Level) {
			continue
		}
		// Handlers may retain the record; only the final one gets the original.
		rec := record
		if i != last {
			rec = record.Clone()
		}
		if err := dest.Handle(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	dests := make([]slog.Handler, len(t.dests))
	for i, dest := range t.dests {
		dests[i] = fn(dest)
	}
	return &teeHandler{dests: dests}
}
