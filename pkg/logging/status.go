package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const clearLine = "\r\x1b[2K"

// StatusHandler renders info records as one status line that each new record
// overwrites. Warnings and errors clear the status line and are printed in full
// so they stay visible.
type StatusHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
	dirty  *bool
}

// NewStatusHandler returns a StatusHandler writing to w.
func NewStatusHandler(w io.Writer, level slog.Leveler) *StatusHandler {
	return &StatusHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		dirty: new(bool),
	}
}

// Enabled implements slog.Handler.
func (h *StatusHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *StatusHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r.Level < slog.LevelWarn {
		*h.dirty = true
		_, err := fmt.Fprint(h.w, clearLine+r.Message)
		return err
	}

	var b strings.Builder
	if *h.dirty {
		b.WriteString(clearLine)
		*h.dirty = false
	}
	b.WriteString(r.Level.String())
	b.WriteString(":\t")
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *StatusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		nh.attrs = append(nh.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &nh
}

// WithGroup implements slog.Handler.
func (h *StatusHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

// Clear erases the status line if one is showing.
func (h *StatusHandler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if *h.dirty {
		_, _ = io.WriteString(h.w, clearLine)
		*h.dirty = false
	}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}

// Writer returns a writer that clears the status line before each write to w,
// so program output is not drawn over the status text.
func (h *StatusHandler) Writer(w io.Writer) io.Writer {
	return &clearingWriter{h: h, w: w}
}

type clearingWriter struct {
	h *StatusHandler
	w io.Writer
}

func (c *clearingWriter) Write(p []byte) (int, error) {
	c.h.Clear()
	return c.w.Write(p)
}
