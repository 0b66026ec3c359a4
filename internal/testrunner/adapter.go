// Package testrunner runs a candidate's test file inside a workspace with a
// bounded timeout.
package testrunner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShayCichocki/bakeoff/internal/exec"
)

// DefaultTimeout bounds a single test run.
const DefaultTimeout = 15 * time.Second

// ErrNoTestCommand is returned when no command is configured for a test file.
var ErrNoTestCommand = errors.New("no test command for language")

// DefaultCommands maps a language to its test command template.
//
// Templates are split on whitespace; each field may contain {test} (the test
// file relative to the workspace root), {dir} (its directory) and {root} (the
// workspace root).
var DefaultCommands = map[string]string{
	"python":     "python -m pytest -q {test}",
	"go":         "go test ./{dir}",
	"javascript": "node --test {test}",
	"typescript": "npx --no-install tsx --test {test}",
	"rust":       "cargo test --quiet",
	"bash":       "bash {test}",
}

var extLanguage = map[string]string{
	".py":  "python",
	".go":  "go",
	".js":  "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".mts": "typescript",
	".rs":  "rust",
	".sh":  "bash",
}

// Result is the outcome of one test run.
type Result struct {
	ExitCode int
	Output   string
	TimedOut bool
	Duration time.Duration
	// Command is the expanded command line, for diagnostics.
	Command string
}

// Passed reports whether the run exited zero within the timeout.
func (r Result) Passed() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Adapter invokes test commands through a CommandRunner.
type Adapter struct {
	runner   exec.CommandRunner
	commands map[string]string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithCommands overrides command templates per language. Empty templates are
// ignored.
func WithCommands(commands map[string]string) Option {
	return func(a *Adapter) {
		for lang, tmpl := range commands {
			if strings.TrimSpace(tmpl) == "" {
				continue
			}
			a.commands[strings.ToLower(lang)] = tmpl
		}
	}
}

// NewAdapter creates an Adapter with the default command templates.
func NewAdapter(runner exec.CommandRunner, opts ...Option) *Adapter {
	a := &Adapter{
		runner:   runner,
		commands: make(map[string]string, len(DefaultCommands)),
	}
	for lang, tmpl := range DefaultCommands {
		a.commands[lang] = tmpl
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the test at testPath (relative to workDir) and reports the
// exit code and combined output. A failing test is not an error; the error is
// reserved for commands that could not be resolved or started.
func (a *Adapter) Run(ctx context.Context, testPath, workDir string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	argv, err := a.Command(testPath, workDir)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	res, err := a.runner.Run(ctx, workDir, timeout, argv[0], argv[1:]...)
	out := Result{
		ExitCode: res.ExitCode,
		Output:   res.Output,
		TimedOut: res.TimedOut,
		Duration: res.Duration,
		Command:  strings.Join(argv, " "),
	}
	if err != nil {
		return out, fmt.Errorf("run %s: %w", argv[0], err)
	}
	return out, nil
}

// Command expands the template for testPath into an argument vector.
func (a *Adapter) Command(testPath, workDir string) ([]string, error) {
	lang := Language(testPath)
	tmpl, ok := a.commands[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTestCommand, filepath.Ext(testPath))
	}

	rel := filepath.ToSlash(filepath.Clean(testPath))
	dir := filepath.ToSlash(filepath.Dir(rel))
	replacer := strings.NewReplacer("{test}", rel, "{dir}", dir, "{root}", workDir)

	fields := strings.Fields(tmpl)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTestCommand, lang)
	}
	argv := make([]string, len(fields))
	for i, f := range fields {
		argv[i] = replacer.Replace(f)
	}
	return argv, nil
}

// Language returns the language key for path, or "" if unknown.
func Language(path string) string {
	return extLanguage[strings.ToLower(filepath.Ext(path))]
}

// TestFileName returns where a candidate's test for target is written,
// relative to the workspace root. The name is picked up by each language's
// default test discovery.
func TestFileName(target string) string {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	switch Language(target) {
	case "python":
		return filepath.Join(dir, "test_"+stem+"_candidate.py")
	case "go":
		return filepath.Join(dir, stem+"_candidate_test.go")
	case "javascript", "typescript":
		return filepath.Join(dir, stem+".candidate.test"+ext)
	case "rust":
		return filepath.Join("tests", stem+"_candidate.rs")
	default:
		return filepath.Join(dir, stem+"_candidate_test"+ext)
	}
}
