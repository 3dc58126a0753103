// Package console provides the orchestrator's slog handler: plain
// structured lines, colorised by level when the terminal supports it.
//
// Normal messages go to stdout in green, debug traces to stdout in
// magenta, warnings and errors to stderr in red. Monochrome mode or a
// non-TTY stdout disables colour; silent mode suppresses everything
// below Error.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// ANSI palette; kept to the basic colours so output degrades cleanly.
var (
	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
)

// Options configures a Handler.
type Options struct {
	// Monochrome disables ANSI colour regardless of TTY detection.
	Monochrome bool
	// Silent suppresses all output below Error.
	Silent bool
	// Debug lowers the threshold to Debug.
	Debug bool
	// Stdout and Stderr default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Handler is a slog.Handler writing level-coloured lines.
type Handler struct {
	opts  Options
	level slog.Level
	color bool
	attrs []slog.Attr
	mu    *sync.Mutex
}

// NewHandler builds a Handler from options. Colour is enabled when
// monochrome is off and, if Stdout is an *os.File, that file is a
// terminal; other writers are not checked, and neither is Stderr.
func NewHandler(opts Options) *Handler {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	if opts.Silent {
		level = slog.LevelError
	}

	color := !opts.Monochrome
	if f, ok := opts.Stdout.(*os.File); ok {
		color = color && isatty.IsTerminal(f.Fd())
	}

	return &Handler{
		opts:  opts,
		level: level,
		color: color,
		mu:    &sync.Mutex{},
	}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler. Warnings and errors go to stderr, the
// rest to stdout.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, a)
		return true
	})

	line := b.String()
	w := h.opts.Stdout
	style := styleInfo
	switch {
	case r.Level >= slog.LevelWarn:
		w = h.opts.Stderr
		style = styleError
	case r.Level <= slog.LevelDebug:
		style = styleDebug
	}
	if h.color {
		line = style.Render(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(w, line)
	return err
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &h2
}

// WithGroup implements slog.Handler. Groups are flattened; the key
// namespace of this program is shallow enough not to need them.
func (h *Handler) WithGroup(string) slog.Handler {
	return h
}

func writeAttr(b *strings.Builder, a slog.Attr) {
	b.WriteString(" ")
	b.WriteString(a.Key)
	b.WriteString("=")
	b.WriteString(a.Value.String())
}
