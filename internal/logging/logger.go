// Package logging provides the file-backed debug logger shared by bakeoff components.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes timestamped lines to a debug log.
// A nil *Logger or one without a writer is a valid no-op logger.
type Logger struct {
	mu     *sync.Mutex // shared with loggers derived through With
	w      io.Writer
	closer io.Closer
	prefix string
}

// New creates a logger writing to the specified path.
// If the path is empty, returns a no-op logger.
// Creates parent directories if they don't exist.
func New(logPath string) (*Logger, error) {
	if logPath == "" {
		return &Logger{}, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &Logger{mu: &sync.Mutex{}, w: f, closer: f}
	l.Log("=== bakeoff debug log started at %s ===", time.Now().Format(time.RFC3339))
	return l, nil
}

// ForProject creates a logger in the project's .bakeoff/logs directory.
// Returns a no-op logger if the directory cannot be created.
func ForProject(projectRoot string) *Logger {
	l, err := New(filepath.Join(projectRoot, ".bakeoff", "logs", "bakeoff-debug.log"))
	if err != nil {
		return &Logger{}
	}
	return l
}

// NewWriter creates a logger writing to w. Mostly useful in tests.
func NewWriter(w io.Writer) *Logger {
	return &Logger{mu: &sync.Mutex{}, w: w}
}

// Nop returns a no-op logger.
func Nop() *Logger {
	return &Logger{}
}

// With returns a logger sharing the same output whose lines carry an extra
// component prefix, e.g. "[workspace]".
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{mu: l.mu, w: l.w, prefix: l.prefix + "[" + component + "] "}
}

// Log writes a timestamped message.
func (l *Logger) Log(format string, args ...interface{}) {
	l.write("", format, args...)
}

// Warn writes a timestamped message tagged as a warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write("WARN ", format, args...)
}

func (l *Logger) write(level, format string, args ...interface{}) {
	if l == nil || l.w == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("15:04:05.000")

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[%s] %s%s%s\n", timestamp, level, l.prefix, msg)
	if f, ok := l.w.(*os.File); ok {
		f.Sync()
	}
}

// Close closes the underlying log file.
// Safe to call on nil logger or logger without file.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil || l.mu == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closer.Close()
}
