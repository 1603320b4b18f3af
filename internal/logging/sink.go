package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sink accepts leveled text messages. Implementations must not panic and
// must swallow their own delivery failures.
type Sink interface {
	Log(level Level, message string)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(level Level, message string)

// Log calls f(level, message).
func (f SinkFunc) Log(level Level, message string) { f(level, message) }

// TimeLayout is the timestamp layout used by line-oriented sinks.
const TimeLayout = "2006-01-02 15:04:05"

// FormatLine renders "<timestamp> <level>: <message>".
func FormatLine(ts time.Time, level Level, message string) string {
	var b strings.Builder
	b.Grow(len(TimeLayout) + len(message) + 12)
	b.WriteString(ts.Format(TimeLayout))
	b.WriteByte(' ')
	b.WriteString(level.String())
	b.WriteString(": ")
	b.WriteString(message)
	b.WriteByte('\n')
	return b.String()
}

// sinkHandler renders slog records into a single message string, attributes
// appended as key=value pairs, and hands them to a Sink.
type sinkHandler struct {
	mu     *sync.Mutex
	sink   Sink
	level  slog.Leveler
	kvs    []kv
	groups []string
}

// NewSinkHandler adapts sink to slog. Records below level are dropped.
func NewSinkHandler(sink Sink, level slog.Leveler) slog.Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &sinkHandler{mu: &sync.Mutex{}, sink: sink, level: level}
}

// NewSinkLogger returns a *slog.Logger writing to sink at the given minimum level.
func NewSinkLogger(sink Sink, level Level) *slog.Logger {
	return slog.New(NewSinkHandler(sink, level.Slog()))
}

func (h *sinkHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.sink != nil && level >= h.level.Level()
}

func (h *sinkHandler) Handle(_ context.Context, record slog.Record) error {
	if h.sink == nil || record.Level < h.level.Level() {
		return nil
	}

	prefix := strings.Join(h.groups, ".")
	kvs := slices.Clone(h.kvs)
	record.Attrs(func(attr slog.Attr) bool {
		kvs = appendFlat(kvs, prefix, attr)
		return true
	})

	var buf strings.Builder
	if component := popComponent(&kvs); component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}
	for _, kv := range kvs {
		if kv.key == "" {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(kv.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(kv.value))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink.Log(FromSlog(record.Level), buf.String())
	return nil
}

func (h *sinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.kvs = slices.Clip(h.kvs)
	prefix := strings.Join(h.groups, ".")
	for _, attr := range attrs {
		next.kvs = appendFlat(next.kvs, prefix, attr)
	}
	return &next
}

func (h *sinkHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(slices.Clip(h.groups), name)
	return &next
}

type kv struct {
	key   string
	value slog.Value
}

func popComponent(kvs *[]kv) string {
	var component string
	filtered := (*kvs)[:0]
	for _, kv := range *kvs {
		if kv.key == FieldComponent {
			if component == "" {
				component = formatValue(kv.value)
			}
			continue
		}
		filtered = append(filtered, kv)
	}
	*kvs = filtered
	return component
}

// appendFlat adds attr to dst, expanding groups into dotted keys.
func appendFlat(dst []kv, prefix string, attr slog.Attr) []kv {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if value.Kind() != slog.KindGroup {
		return append(dst, kv{key: key, value: value})
	}
	for _, member := range value.Group() {
		dst = appendFlat(dst, key, member)
	}
	return dst
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
