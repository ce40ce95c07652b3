// Package logger provides levelled logging for the collector.
// Messages go through a log/slog handler that prints one "[LEVEL] message"
// line per record to stderr and, when enabled, to a daily log file.
// The --verbose flag lowers the level to debug so pipeline decisions
// (skipped URLs, extraction strategy fallbacks, cache hits) become visible.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// DefaultLevel is the level used until SetLevel or SetVerbose is called.
const DefaultLevel = slog.LevelWarn

var (
	mu     sync.RWMutex
	output io.Writer = os.Stderr
	file   *DailyFile
	level  = new(slog.LevelVar)
	base   = slog.New(&lineHandler{level: level})
)

func init() {
	level.Set(DefaultLevel)
}

// SetVerbose switches between debug logging and DefaultLevel.
func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(DefaultLevel)
}

// IsVerbose returns true if debug messages are printed.
func IsVerbose() bool {
	return level.Level() <= slog.LevelDebug
}

// SetLevel sets the minimum level by name: debug, info, warn or error.
func SetLevel(name string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return fmt.Errorf("unknown log level %q", name)
	}
	level.Set(l)
	return nil
}

// SetOutput sets the console writer.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// EnableFile mirrors every record into a daily log file under dir.
// The returned file must be closed on shutdown.
func EnableFile(dir, prefix string) (*DailyFile, error) {
	f, err := NewDailyFile(dir, prefix)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
	}
	file = f
	return f, nil
}

// DisableFile stops mirroring into the log file and closes it.
func DisableFile() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// Logger returns the structured logger behind the package functions.
func Logger() *slog.Logger {
	return base
}

// Debug prints a debug message.
func Debug(format string, args ...any) {
	logf(slog.LevelDebug, format, args...)
}

// Info prints an informational message.
func Info(format string, args ...any) {
	logf(slog.LevelInfo, format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	logf(slog.LevelWarn, format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	logf(slog.LevelError, format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	if !IsVerbose() {
		return
	}
	writeLine(fmt.Sprintf("\n=== %s ===\n", name))
}

func logf(l slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !base.Enabled(ctx, l) {
		return
	}
	base.Log(ctx, l, fmt.Sprintf(format, args...))
}

func writeLine(line string) {
	mu.RLock()
	defer mu.RUnlock()
	_, _ = io.WriteString(output, line)
	if file != nil {
		_, _ = file.Write([]byte(line))
	}
}

// lineHandler renders records as "[LEVEL] message key=value".
type lineHandler struct {
	level slog.Leveler
	attrs []slog.Attr
	group string
}

func (h *lineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(r.Level.String())
	b.WriteString("] ")
	b.WriteString(r.Message)

	write := func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	b.WriteString("\n")

	writeLine(b.String())
	return nil
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		name = clone.group + "." + name
	}
	clone.group = name
	return &clone
}
