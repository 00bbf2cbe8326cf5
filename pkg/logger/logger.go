// Package logger provides a coloured text handler for log/slog.
//
// Errors are printed in red, warnings in yellow and messages about data
// being written to storage in green. Colours are dropped automatically when
// the output is not a terminal.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// persistenceWords mark info messages that report storage writes.
var persistenceWords = []string{"persist", "created", "stored", "built", "seeded", "exported"}

var (
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	persistColor = color.New(color.FgGreen)
	debugColor   = color.New(color.FgHiBlack)
	keyColor     = color.New(color.FgCyan)
)

// ColorHandler is a slog.Handler writing one coloured line per record.
type ColorHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   slog.HandlerOptions
	attrs  []slog.Attr
	groups []string
}

// NewColorHandler creates a handler writing to w. A nil opts logs at info
// level.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	h := &ColorHandler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// NewDefaultLogger returns a logger writing coloured lines to stderr.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug, info, warn and error to a slog level. Anything
// else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Enabled implements slog.Handler.
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle implements slog.Handler.
func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		b.WriteString(r.Time.Format(time.DateTime))
		b.WriteByte(' ')
	}
	level := fmt.Sprintf("%-5s", r.Level.String())
	msg := r.Message
	switch {
	case r.Level >= slog.LevelError:
		level, msg = errorColor.Sprint(level), errorColor.Sprint(msg)
	case r.Level >= slog.LevelWarn:
		level, msg = warnColor.Sprint(level), warnColor.Sprint(msg)
	case r.Level < slog.LevelInfo:
		level = debugColor.Sprint(level)
	case isPersistence(msg):
		msg = persistColor.Sprint(msg)
	}
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return clone
}

// WithGroup implements slog.Handler.
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *ColorHandler) clone() *ColorHandler {
	return &ColorHandler{
		mu:     h.mu,
		w:      h.w,
		opts:   h.opts,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(keyColor.Sprint(key))
	b.WriteByte('=')
	value := a.Value.String()
	if strings.ContainsAny(value, " \t\n\"=") {
		value = fmt.Sprintf("%q", value)
	}
	b.WriteString(value)
}

func isPersistence(msg string) bool {
	lower := strings.ToLower(msg)
	for _, w := range persistenceWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
