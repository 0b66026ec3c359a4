package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_EmptyPathIsNop(t *testing.T) {
	l, err := New("")
	if err != nil {
		t.Fatalf("New(\"\") error = %v", err)
	}
	l.Log("ignored %d", 1)
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Log("hello %s", "world")
	l.Warn("careful")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "hello world") {
		t.Errorf("log missing message: %q", content)
	}
	if !strings.Contains(content, "WARN careful") {
		t.Errorf("log missing warning: %q", content)
	}
}

func TestWith_AddsComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With("workspace").With("git")
	l.Log("created")

	if !strings.Contains(buf.String(), "[workspace] [git] created") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Log("no panic")
	l.Warn("no panic")
	if l.With("x") != nil {
		t.Error("With on nil logger should return nil")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() on nil logger error = %v", err)
	}
}
