// Package sessionlog tees warnings and errors into a per-run session log that
// the frontend can display.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Component string            `json:"component"`
	Message   string            `json:"msg"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// Sink receives captured entries. Write must not log through slog at Warn or
// above, since that would re-enter the handler.
type Sink interface {
	Write(entry Entry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(entry Entry)

func (f SinkFunc) Write(entry Entry) { f(entry) }

// TeeHandler wraps a base slog.Handler and copies records at or above
// minLevel to a Sink. Every record still reaches the base handler.
type TeeHandler struct {
	base     slog.Handler
	sink     Sink
	minLevel slog.Level
	group    string
	attrs    []slog.Attr
}

// NewTeeHandler creates a TeeHandler. A nil sink only delegates.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, sink Sink) *TeeHandler {
	return &TeeHandler{base: base, sink: sink, minLevel: minLevel}
}

// Enabled defers to the base handler; minLevel only gates the sink.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record to the base handler, then tees it. The sink sees
// the record even when the base handler fails.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.sink != nil && record.Level >= h.minLevel {
		entry := h.entryFor(record)
		func() {
			defer func() {
				if r := recover(); r != nil {
					// stderr, not slog: logging here would recurse into this handler.
					fmt.Fprintf(os.Stderr, "[session-log] sink panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.sink.Write(entry)
		}()
	}
	return err
}

// WithAttrs keeps the attributes for the tee as well as the base handler.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.base = h.base.WithAttrs(attrs)
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)
	return &next
}

// WithGroup nests later attributes under name, joined with ".".
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.base = h.base.WithGroup(name)
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

func (h *TeeHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}

func (h *TeeHandler) entryFor(record slog.Record) Entry {
	component, msg := splitComponent(record.Message)
	if component == "" {
		component = h.group
	}

	var attrs map[string]string
	add := func(a slog.Attr) {
		if a.Key == "" {
			return
		}
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[a.Key] = a.Value.Resolve().String()
	}
	for _, a := range h.attrs {
		add(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == "stack" {
			return true
		}
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		add(a)
		return true
	})

	return Entry{
		Timestamp: record.Time,
		Level:     levelName(record.Level),
		Component: component,
		Message:   msg,
		Attrs:     attrs,
	}
}

// splitComponent extracts a leading "[tag]" from msg.
func splitComponent(msg string) (string, string) {
	if !strings.HasPrefix(msg, "[") {
		return "", msg
	}
	end := strings.IndexByte(msg, ']')
	if end <= 1 {
		return "", msg
	}
	return msg[1:end], strings.TrimSpace(msg[end+1:])
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
