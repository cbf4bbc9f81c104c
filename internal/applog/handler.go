// Package applog keeps the recent warnings and errors of a launcher run so
// the window can show them, and mirrors them to a JSONL file next to the
// config.
package applog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// EntryFunc receives each record at or above the tee threshold. group is the
// dot-joined slog group, or empty.
type EntryFunc func(ts time.Time, level slog.Level, msg string, group string)

// TeeHandler forwards every record to base and copies records at or above
// minLevel to a callback.
type TeeHandler struct {
	base     slog.Handler
	callback EntryFunc
	minLevel slog.Level
	group    string
}

// NewTeeHandler wraps base. A nil callback disables teeing.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryFunc) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.callback != nil && record.Level >= h.minLevel {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// stderr, not slog: logging here would re-enter this handler
					fmt.Fprintf(os.Stderr, "[app-log] callback panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.callback(record.Time, record.Level, record.Message, h.group)
		}()
	}
	return err
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &TeeHandler{
		base:     h.base.WithAttrs(attrs),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    h.group,
	}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &TeeHandler{
		base:     h.base.WithGroup(name),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    group,
	}
}
